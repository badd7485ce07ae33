package config

import (
	"context"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SecretKeys are resolved from Parameter Store when secrets_source is "ssm".
var SecretKeys = []string{"telegram_bot_token", "openai_api_key", "alpaca_api_key", "alpaca_api_secret", "api_pro_key"}

// ParameterGetter is the subset of the SSM client used for secret lookup.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveSecrets fills empty secret keys from AWS SSM Parameter Store.
// It is a no-op unless secrets_source is "ssm".
func ResolveSecrets(ctx context.Context) error {
	if !strings.EqualFold(GetString("secrets_source"), "ssm") {
		return nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return errors.Wrap(err, "could not load aws config")
	}
	return resolveWith(ctx, ssm.NewFromConfig(cfg))
}

func resolveWith(ctx context.Context, client ParameterGetter) error {
	prefix := GetString("ssm_prefix")
	decrypt := true

	for _, key := range SecretKeys {
		if GetString(key) != "" {
			continue
		}
		name := prefix + strings.ToUpper(key)

		ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
		result, err := client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
			Name:           &name,
			WithDecryption: &decrypt,
		})
		cancel()
		if err != nil {
			log.WithField("parameter", name).Debugf("ssm lookup failed: %v", err)
			continue
		}
		if result.Parameter == nil || result.Parameter.Value == nil {
			continue
		}

		Set(key, *result.Parameter.Value)
		log.WithField("parameter", name).Info("🔑 Secret loaded from parameter store")
	}
	return nil
}
