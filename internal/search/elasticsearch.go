package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

// ElasticClient keeps a searchable projection of the work order table
type ElasticClient struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		index:  config.FormatIndex(cfg, cfg.Index),
	}, nil
}

// Name implements events.Sink
func (c *ElasticClient) Name() string { return "elasticsearch" }

// Deliver implements events.Sink
func (c *ElasticClient) Deliver(ctx context.Context, change events.Change) error {
	if change.Kind.IsDelete() {
		return c.DeleteWorkOrder(ctx, change.ID)
	}
	if change.Row == nil {
		return nil
	}
	return c.IndexWorkOrder(ctx, change.Row)
}

// IndexWorkOrder writes the current state of row, total included
func (c *ElasticClient) IndexWorkOrder(ctx context.Context, row *models.WorkOrder) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "failed to marshal work order document")
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatUint(uint64(row.ID), 10),
		Body:       bytes.NewReader(doc),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index", res)
	}

	log.Debug().Uint("work_order_id", row.ID).Str("index", c.index).Msg("work order indexed")
	return nil
}

// DeleteWorkOrder removes the document of id; a missing document is not an error
func (c *ElasticClient) DeleteWorkOrder(ctx context.Context, id uint) error {
	req := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: strconv.FormatUint(uint64(id), 10),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete", res)
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Wrapf(err, "failed to parse Elasticsearch %s error response", op)
	}
	return errors.Errorf("Elasticsearch %s error: %s %v", op, res.Status(), e)
}
