package collab

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// cachedSecret backs SecretsManagerStore's process-local cache: once a
// secret has been fetched it is reused for the life of the process,
// last-writer-wins if Invalidate races a concurrent fetch, rather than
// round-tripping to Secrets Manager on every call.
type cachedSecret struct {
	value string
}

// SecretsManagerStore resolves secrets from AWS Secrets Manager, with
// an immutable-until-invalidated in-process cache so a secret used on
// every request (e.g. the token signing key) costs one API call for
// the process's lifetime rather than one per request.
type SecretsManagerStore struct {
	client *secretsmanager.Client
	cache  sync.Map // name -> cachedSecret
}

func NewSecretsManagerStore(client *secretsmanager.Client) *SecretsManagerStore {
	return &SecretsManagerStore{client: client}
}

func (s *SecretsManagerStore) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := s.cache.Load(name); ok {
		return v.(cachedSecret).value, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		return "", err
	}

	value := ""
	if out.SecretString != nil {
		value = *out.SecretString
	}
	s.cache.Store(name, cachedSecret{value: value})
	return value, nil
}

// Invalidate drops a cached secret so the next GetSecret call re-fetches
// it; used after a rotation notification.
func (s *SecretsManagerStore) Invalidate(name string) {
	s.cache.Delete(name)
}
