// Package mfa configures an AWS credentials profile with temporary
// MFA-authenticated credentials from STS.
package mfa

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"gopkg.in/ini.v1"
)

// ConfigSection is the section of the AWS config file where the MFA device
// serial number is persisted between runs.
const ConfigSection = "awsops:mfa"

// STSAPI is the subset of the AWS STS client used by this package.
type STSAPI interface {
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// Options configures a Configure run.
type Options struct {
	// Profile is the credentials profile to write. Defaults to "mfa".
	Profile string

	SerialNumber string
	TokenCode    string

	// CredentialsPath is the AWS credentials file to update.
	CredentialsPath string

	// ConfigPath is the AWS config file used to persist the MFA serial number.
	ConfigPath string

	// Persist writes the serial number back to ConfigPath for later runs.
	Persist bool

	// DurationSeconds for the session token; zero uses the STS default.
	DurationSeconds int32

	Logger *slog.Logger
}

// LoadSerialNumber reads a previously persisted MFA serial number from the
// AWS config file. The second return reports whether one was found.
func LoadSerialNumber(configPath string) (string, bool, error) {
	cfg, err := ini.LooseLoad(configPath)
	if err != nil {
		return "", false, fmt.Errorf("reading AWS config %s: %w", configPath, err)
	}
	section, err := cfg.GetSection(ConfigSection)
	if err != nil {
		return "", false, nil
	}
	serial := section.Key("mfa_serial_number").String()
	return serial, serial != "", nil
}

// Configure retrieves a session token for the MFA device and writes the
// temporary credentials to the given profile of the AWS credentials file.
func Configure(ctx context.Context, client STSAPI, opts Options) error {
	if opts.Profile == "" {
		opts.Profile = "mfa"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SerialNumber == "" {
		return fmt.Errorf("MFA serial number is required")
	}
	if opts.TokenCode == "" {
		return fmt.Errorf("MFA token code is required")
	}

	input := &sts.GetSessionTokenInput{
		SerialNumber: aws.String(opts.SerialNumber),
		TokenCode:    aws.String(opts.TokenCode),
	}
	if opts.DurationSeconds > 0 {
		input.DurationSeconds = aws.Int32(opts.DurationSeconds)
	}

	opts.Logger.Info("retrieving MFA credentials", "serialNumber", opts.SerialNumber)
	out, err := client.GetSessionToken(ctx, input)
	if err != nil {
		return fmt.Errorf("getting session token: %w", err)
	}
	if out.Credentials == nil {
		return fmt.Errorf("getting session token: empty credentials in response")
	}

	if err := writeCredentials(opts.CredentialsPath, opts.Profile, out); err != nil {
		return err
	}
	opts.Logger.Info("updated MFA profile", "profile", opts.Profile, "path", opts.CredentialsPath)

	if opts.Persist {
		if err := persistSerialNumber(opts.ConfigPath, opts.SerialNumber); err != nil {
			return err
		}
		opts.Logger.Info("persisted MFA configuration", "path", opts.ConfigPath, "section", ConfigSection)
	}

	return nil
}

func writeCredentials(path, profile string, out *sts.GetSessionTokenOutput) error {
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("reading AWS credentials %s: %w", path, err)
	}

	section := cfg.Section(profile)
	section.Key("aws_access_key_id").SetValue(aws.ToString(out.Credentials.AccessKeyId))
	section.Key("aws_secret_access_key").SetValue(aws.ToString(out.Credentials.SecretAccessKey))
	section.Key("aws_session_token").SetValue(aws.ToString(out.Credentials.SessionToken))

	return saveINI(cfg, path)
}

func persistSerialNumber(path, serialNumber string) error {
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("reading AWS config %s: %w", path, err)
	}
	cfg.Section(ConfigSection).Key("mfa_serial_number").SetValue(serialNumber)
	return saveINI(cfg, path)
}

func saveINI(cfg *ini.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
