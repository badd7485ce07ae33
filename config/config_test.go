package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/pkg/errors"
)

func TestDefaults(t *testing.T) {
	if got := GetInt("tracking_interval_minutes"); got != 60 {
		t.Fatalf("tracking_interval_minutes = %d, want 60", got)
	}
	if got := GetString("openai_model"); got != "gpt-4o-mini" {
		t.Fatalf("openai_model = %q", got)
	}
	if got := GetString("market_timezone"); got != "America/New_York" {
		t.Fatalf("market_timezone = %q", got)
	}
	if got := GetDuration("quote_cache_ttl"); got != time.Minute {
		t.Fatalf("quote_cache_ttl = %v", got)
	}
}

func TestValidateReportsMissingKeys(t *testing.T) {
	Set("telegram_bot_token", "")
	Set("telegram_chat_id", "")
	Set("openai_api_key", "")

	err := Validate()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}

	Set("telegram_bot_token", "123:abc")
	Set("telegram_chat_id", "4242")
	Set("openai_api_key", "sk-test")
	if err := Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	Set("telegram_chat_id", "not-a-number")
	if err := Validate(); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

type fakeParameters map[string]string

func (f fakeParameters) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	v, ok := f[*in.Name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(v)}}, nil
}

func TestResolveSecretsFillsOnlyEmptyKeys(t *testing.T) {
	Set("ssm_prefix", "/test/")
	Set("openai_api_key", "")
	Set("telegram_bot_token", "from-env")

	params := fakeParameters{
		"/test/OPENAI_API_KEY":     "sk-from-ssm",
		"/test/TELEGRAM_BOT_TOKEN": "from-ssm",
	}
	if err := resolveWith(context.Background(), params); err != nil {
		t.Fatalf("resolveWith: %v", err)
	}

	if got := GetString("openai_api_key"); got != "sk-from-ssm" {
		t.Fatalf("openai_api_key = %q", got)
	}
	if got := GetString("telegram_bot_token"); got != "from-env" {
		t.Fatalf("telegram_bot_token overwritten: %q", got)
	}
}
