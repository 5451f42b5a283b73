package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const secretTTL = 15 * time.Minute

// SecretGetter resolves a secret by name.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type cachedSecret struct {
	value   string
	fetched time.Time
}

// SecretsClient reads string secrets from Secrets Manager. Values are cached
// for fifteen minutes so rotated secrets are eventually picked up.
//
// A name of the form "secret-id#KEY" selects KEY from a JSON object secret.
type SecretsClient struct {
	api   secretsAPI
	now   func() time.Time
	mu    sync.Mutex
	cache map[string]cachedSecret
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return newSecretsClient(secretsmanager.NewFromConfig(cfg))
}

func newSecretsClient(api secretsAPI) *SecretsClient {
	return &SecretsClient{api: api, now: time.Now, cache: make(map[string]cachedSecret)}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	id, key, _ := strings.Cut(name, "#")

	raw, err := s.fetch(ctx, id)
	if err != nil {
		return "", err
	}
	if key == "" {
		return raw, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", id, err)
	}
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("secret %s has no key %s", id, key)
	}
	return v, nil
}

func (s *SecretsClient) fetch(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	if c, ok := s.cache[id]; ok && s.now().Sub(c.fetched) < secretTTL {
		s.mu.Unlock()
		return c.value, nil
	}
	s.mu.Unlock()

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(id)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", id)
	}

	s.mu.Lock()
	s.cache[id] = cachedSecret{value: *out.SecretString, fetched: s.now()}
	s.mu.Unlock()
	return *out.SecretString, nil
}
