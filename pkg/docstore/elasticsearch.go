package docstore

import (
	"context"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/noah-isme/student-hub-api/pkg/config"
)

// NewElasticsearch builds a client and verifies the node is reachable.
func NewElasticsearch(ctx context.Context, cfg config.DocStoreConfig) (*es.Client, error) {
	client, err := es.NewClient(es.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		return nil, fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck
	if res.IsError() {
		return nil, fmt.Errorf("ping elasticsearch: %s", res.Status())
	}

	return client, nil
}
