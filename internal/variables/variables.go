// Package variables resolves AWS Secrets Manager secrets and SSM parameters
// into a single flat environment mapping with deterministic merge precedence.
package variables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const (
	secretARNPrefix    = "arn:aws:secretsmanager:"
	parameterARNPrefix = "arn:aws:ssm:"
)

// Configuration errors, distinct from backend failures. They are raised
// before any variable is injected anywhere.
var (
	// ErrUnsupportedARN indicates a source ARN matching neither the secret
	// nor the parameter prefix.
	ErrUnsupportedARN = errors.New("unsupported resource ARN")

	// ErrKeyConflict indicates the same variable name is sourced from both a
	// secret and a parameter.
	ErrKeyConflict = errors.New("conflicting keys between secrets and parameters")

	// ErrNotAnObject indicates a payload that did not decode to a flat JSON
	// object.
	ErrNotAnObject = errors.New("payload is not a JSON object")
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	BatchGetSecretValue(ctx context.Context, params *secretsmanager.BatchGetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.BatchGetSecretValueOutput, error)
}

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Loader retrieves and merges variables from AWS sources.
type Loader struct {
	secrets SecretsManagerAPI
	ssm     SSMAPI
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// NewLoader creates a Loader backed by the given clients.
func NewLoader(secrets SecretsManagerAPI, ssmClient SSMAPI, opts ...LoaderOption) *Loader {
	ld := &Loader{
		secrets: secrets,
		ssm:     ssmClient,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// Load resolves each source ARN to a flat key-value object and merges them
// into one mapping. Sources are keyed by an order key; merging follows the
// ascending string sort of those keys, later sources overwriting earlier ones
// on collision. Merge precedence therefore depends only on the order keys,
// not on call or input order.
//
// Sources are partitioned by ARN prefix and fetched with one batched backend
// call per partition. Any per-item backend error is fatal for the whole load;
// partial success is not allowed.
func (ld *Loader) Load(ctx context.Context, sources map[string]string) (map[string]string, error) {
	secretsByKey := make(map[string]string)
	parametersByKey := make(map[string]string)
	for orderKey, arn := range sources {
		switch {
		case strings.HasPrefix(arn, secretARNPrefix):
			secretsByKey[orderKey] = arn
		case strings.HasPrefix(arn, parameterARNPrefix):
			parametersByKey[orderKey] = arn
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedARN, arn)
		}
	}

	secrets, err := ld.retrieveSecrets(ctx, secretsByKey)
	if err != nil {
		return nil, err
	}
	parameters, err := ld.retrieveParameters(ctx, parametersByKey)
	if err != nil {
		return nil, err
	}

	// Same variable name sourced from both backends is a configuration
	// error, checked before merging.
	for key := range secrets {
		if _, ok := parameters[key]; ok {
			return nil, fmt.Errorf("%w: order key %s", ErrKeyConflict, key)
		}
	}

	byOrderKey := make(map[string]map[string]string, len(secrets)+len(parameters))
	for key, vars := range secrets {
		byOrderKey[key] = vars
	}
	for key, vars := range parameters {
		byOrderKey[key] = vars
	}

	orderKeys := make([]string, 0, len(byOrderKey))
	for key := range byOrderKey {
		orderKeys = append(orderKeys, key)
	}
	sort.Strings(orderKeys)

	merged := make(map[string]string)
	for _, key := range orderKeys {
		for name, value := range byOrderKey[key] {
			merged[name] = value
		}
	}

	ld.logger.Debug("variables loaded", "sources", len(sources), "variables", len(merged))
	return merged, nil
}

func (ld *Loader) retrieveSecrets(ctx context.Context, secretsByKey map[string]string) (map[string]map[string]string, error) {
	if len(secretsByKey) == 0 {
		return nil, nil
	}

	arns := make([]string, 0, len(secretsByKey))
	for _, arn := range secretsByKey {
		arns = append(arns, arn)
	}
	sort.Strings(arns)

	out, err := ld.secrets.BatchGetSecretValue(ctx, &secretsmanager.BatchGetSecretValueInput{
		SecretIdList: arns,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving secrets: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return nil, fmt.Errorf("retrieving secret %s: %s: %s",
			aws.ToString(first.SecretId), aws.ToString(first.ErrorCode), aws.ToString(first.Message))
	}

	result := make(map[string]map[string]string, len(out.SecretValues))
	for _, secret := range out.SecretValues {
		arn := aws.ToString(secret.ARN)
		orderKey, ok := orderKeyFor(secretsByKey, arn)
		if !ok {
			return nil, fmt.Errorf("unexpected secret in response: %s", arn)
		}
		vars, err := decodeFlatObject(aws.ToString(secret.SecretString))
		if err != nil {
			return nil, fmt.Errorf("secret %s: %w", arn, err)
		}
		result[orderKey] = vars
	}
	return result, nil
}

func (ld *Loader) retrieveParameters(ctx context.Context, parametersByKey map[string]string) (map[string]map[string]string, error) {
	if len(parametersByKey) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(parametersByKey))
	for _, arn := range parametersByKey {
		names = append(names, arn)
	}
	sort.Strings(names)

	out, err := ld.ssm.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving parameters: %w", err)
	}
	if len(out.InvalidParameters) > 0 {
		return nil, fmt.Errorf("invalid parameters: %s", strings.Join(out.InvalidParameters, ", "))
	}

	result := make(map[string]map[string]string, len(out.Parameters))
	for _, parameter := range out.Parameters {
		arn := aws.ToString(parameter.ARN)
		orderKey, ok := orderKeyFor(parametersByKey, arn)
		if !ok {
			return nil, fmt.Errorf("unexpected parameter in response: %s", arn)
		}
		vars, err := decodeFlatObject(aws.ToString(parameter.Value))
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", arn, err)
		}
		result[orderKey] = vars
	}
	return result, nil
}

// orderKeyFor finds the order key whose source ARN matches the one reported
// back by the backend.
func orderKeyFor(byKey map[string]string, arn string) (string, bool) {
	for key, candidate := range byKey {
		if candidate == arn {
			return key, true
		}
	}
	return "", false
}

// decodeFlatObject decodes a JSON payload that must be a flat string-keyed
// object. Non-string values are rendered back to their JSON text.
func decodeFlatObject(payload string) (map[string]string, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnObject, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: got null", ErrNotAnObject)
	}

	vars := make(map[string]string, len(data))
	for name, raw := range data {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		vars[name] = s
	}
	return vars, nil
}
