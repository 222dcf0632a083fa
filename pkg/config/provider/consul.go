package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/consul/api"
)

// ConsulProvider loads config from a Consul KV key and watches it via
// a blocking query, the same long-poll pattern the teacher's Consul
// integration test exercises against client.KV().Get.
type ConsulProvider struct {
	client *api.Client
	key    string

	lastIndex uint64
}

// NewConsulProvider returns a provider bound to key without contacting
// any server. endpoints[0] becomes the client's address (the other
// endpoints are not used);
// Consul itself handles server discovery from there.
func NewConsulProvider(endpoints []string, key string) (*ConsulProvider, error) {
	if key == "" {
		return nil, fmt.Errorf("consul key is required")
	}

	cfg := api.DefaultConfig()
	if len(endpoints) > 0 {
		cfg.Address = endpoints[0]
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulProvider{client: client, key: key}, nil
}

// Type returns TypeConsul.
func (p *ConsulProvider) Type() Type {
	return TypeConsul
}

// Load fetches the current value of the KV key.
func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, meta, err := p.client.KV().Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("read consul key %s: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %s not found", p.key)
	}
	if meta != nil {
		p.lastIndex = meta.LastIndex
	}
	return pair.Value, nil
}

// Watch blocks on the KV key via a long-poll query and signals on
// every index change. Cancel ctx to stop watching.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, ch)
	return ch, nil
}

func (p *ConsulProvider) watchLoop(ctx context.Context, ch chan<- struct{}) {
	defer close(ch)

	index := p.lastIndex
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		opts := (&api.QueryOptions{WaitIndex: index}).WithContext(ctx)
		pair, meta, err := p.client.KV().Get(p.key, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("consul watch error", "key", p.key, "error", err)
			continue
		}
		if meta == nil {
			continue
		}
		if meta.LastIndex == index {
			continue
		}
		index = meta.LastIndex

		if pair == nil {
			slog.Warn("consul key deleted", "key", p.key)
			return
		}

		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close releases the provider. The Consul client holds no connection
// that needs closing.
func (p *ConsulProvider) Close() error {
	return nil
}

var _ Provider = (*ConsulProvider)(nil)
