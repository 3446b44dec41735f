package commands

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/awsops/internal/mfa"
)

// NewMFACmd creates the mfa command group.
func NewMFACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "MFA-based AWS credential helpers",
	}
	cmd.AddCommand(newMFAConfigureCmd())
	return cmd
}

func newMFAConfigureCmd() *cobra.Command {
	var (
		profile         string
		serialNumber    string
		tokenCode       string
		credentialsPath string
		configPath      string
		persist         bool
		durationSeconds int32
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure an AWS profile with MFA session credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMFAConfigure(cmd.Context(), mfaConfigureOptions{
				profile:         profile,
				serialNumber:    serialNumber,
				tokenCode:       tokenCode,
				credentialsPath: credentialsPath,
				configPath:      configPath,
				persist:         persist,
				durationSeconds: durationSeconds,
			})
		},
	}

	cmd.Flags().StringVar(&profile, "mfa-profile", "mfa", "The credentials profile to configure.")
	cmd.Flags().StringVar(&serialNumber, "mfa-serial-number", "",
		"The MFA device serial number. Required unless persisted in the AWS config file.")
	cmd.Flags().StringVar(&tokenCode, "mfa-token-code", "", "The MFA token code.")
	cmd.Flags().StringVar(&credentialsPath, "aws-credentials", "~/.aws/credentials",
		"The path to the AWS credentials file.")
	cmd.Flags().StringVar(&configPath, "aws-config", "~/.aws/config",
		"The path to the AWS config file, used to persist the MFA configuration.")
	cmd.Flags().BoolVar(&persist, "persist", true, "Persist the MFA configuration.")
	cmd.Flags().Int32Var(&durationSeconds, "duration-seconds", 0,
		"Session duration in seconds. 0 uses the STS default.")

	return cmd
}

type mfaConfigureOptions struct {
	profile         string
	serialNumber    string
	tokenCode       string
	credentialsPath string
	configPath      string
	persist         bool
	durationSeconds int32
}

func runMFAConfigure(ctx context.Context, opts mfaConfigureOptions) error {
	credentialsPath, err := expandUser(opts.credentialsPath)
	if err != nil {
		return err
	}
	configPath, err := expandUser(opts.configPath)
	if err != nil {
		return err
	}

	if opts.serialNumber == "" {
		persisted, found, err := mfa.LoadSerialNumber(configPath)
		if err != nil {
			return err
		}
		if found {
			fmt.Printf("Loaded MFA configuration from AWS config (%s).\n", configPath)
			opts.serialNumber = persisted
		}
	}
	if opts.serialNumber == "" {
		if opts.serialNumber, err = prompt("Enter MFA serial number"); err != nil {
			return err
		}
	}
	if opts.tokenCode == "" {
		if opts.tokenCode, err = prompt("Enter MFA token code"); err != nil {
			return err
		}
	}

	if dryRun {
		color.Yellow("Dry run: would configure profile %s in %s.", opts.profile, credentialsPath)
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	err = mfa.Configure(ctx, sts.NewFromConfig(awsCfg), mfa.Options{
		Profile:         opts.profile,
		SerialNumber:    opts.serialNumber,
		TokenCode:       opts.tokenCode,
		CredentialsPath: credentialsPath,
		ConfigPath:      configPath,
		Persist:         opts.persist,
		DurationSeconds: opts.durationSeconds,
		Logger:          newLogger(),
	})
	if err != nil {
		return err
	}

	color.Green("Updated MFA profile (%s) in AWS credentials (%s).", opts.profile, credentialsPath)
	if !opts.persist {
		color.Yellow("MFA configuration not persisted.")
	}
	return nil
}
