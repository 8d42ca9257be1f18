package settings

import (
	"context"
	"strings"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore keeps the settings in valkey.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to the valkey url and verifies the connection.
func NewValkeyStore(ctx context.Context, dsn string) (*ValkeyStore, error) {
	// valkey-go understands the redis url schemes.
	dsn = strings.Replace(dsn, "valkey", "redis", 1)

	opts, err := valkey.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if pingErr := client.Do(pingCtx, client.B().Ping().Build()).Error(); pingErr != nil {
		client.Close()
		return nil, pingErr
	}

	return &ValkeyStore{client: client}, nil
}

func (vs *ValkeyStore) Read(ctx context.Context, key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}

	cmd := vs.client.B().Get().Key(remoteKeyPrefix + key).Build()
	val, err := vs.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (vs *ValkeyStore) Write(ctx context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}

	cmd := vs.client.B().Set().Key(remoteKeyPrefix + key).Value(value).Build()
	return vs.client.Do(ctx, cmd).Error()
}

func (vs *ValkeyStore) Close() error {
	vs.client.Close()
	return nil
}
