package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/noah-isme/student-hub-api/internal/models"
)

const activityIndexMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
	"user_id":{"type":"keyword"},"category":{"type":"keyword"},"title":{"type":"text"},
	"description":{"type":"text"},"duration":{"type":"keyword"},"skills_gained":{"type":"keyword"},
	"proof_url":{"type":"keyword","index":false},"status":{"type":"keyword"},
	"created_at":{"type":"date"},"approved_at":{"type":"date"},"faculty_id":{"type":"keyword"}
}}}`

// searchPage is the page size for search_after listings and composite aggregation
// rounds. It stays well under the default index.max_result_window.
const searchPage = 1000

// activityDoc is the persisted shape of an activity. The id lives in _id.
type activityDoc struct {
	UserID       string                `json:"user_id"`
	Category     string                `json:"category"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Duration     string                `json:"duration"`
	SkillsGained []string              `json:"skills_gained"`
	ProofURL     *string               `json:"proof_url"`
	Status       models.ActivityStatus `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	ApprovedAt   *time.Time            `json:"approved_at"`
	FacultyID    *string               `json:"faculty_id"`
}

func docFromActivity(a *models.Activity) activityDoc {
	skills := a.SkillsGained
	if skills == nil {
		skills = []string{}
	}
	return activityDoc{
		UserID:       a.UserID,
		Category:     a.Category,
		Title:        a.Title,
		Description:  a.Description,
		Duration:     a.Duration,
		SkillsGained: skills,
		ProofURL:     a.ProofURL,
		Status:       a.Status,
		CreatedAt:    a.CreatedAt,
		ApprovedAt:   a.ApprovedAt,
		FacultyID:    a.FacultyID,
	}
}

func (d activityDoc) toActivity(id string) models.Activity {
	return models.Activity{
		ID:           id,
		UserID:       d.UserID,
		Category:     d.Category,
		Title:        d.Title,
		Description:  d.Description,
		Duration:     d.Duration,
		SkillsGained: d.SkillsGained,
		ProofURL:     d.ProofURL,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		ApprovedAt:   d.ApprovedAt,
		FacultyID:    d.FacultyID,
	}
}

type getResponse struct {
	ID          string      `json:"_id"`
	Found       bool        `json:"found"`
	SeqNo       int         `json:"_seq_no"`
	PrimaryTerm int         `json:"_primary_term"`
	Source      activityDoc `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source activityDoc   `json:"_source"`
			Sort   []interface{} `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		ByOwner struct {
			AfterKey map[string]interface{} `json:"after_key"`
			Buckets  []struct {
				Key      map[string]string `json:"key"`
				DocCount int               `json:"doc_count"`
			} `json:"buckets"`
		} `json:"by_owner"`
	} `json:"aggregations"`
}

// ElasticActivityRepository stores activities as Elasticsearch documents.
type ElasticActivityRepository struct {
	client   *es.Client
	index    string
	pageSize int
}

// NewElasticActivityRepository constructs the repository for the given index.
func NewElasticActivityRepository(client *es.Client, index string) *ElasticActivityRepository {
	if index == "" {
		index = "activities"
	}
	return &ElasticActivityRepository{client: client, index: index, pageSize: searchPage}
}

// EnsureIndex creates the activity index with a strict mapping when it does not exist.
func (r *ElasticActivityRepository) EnsureIndex(ctx context.Context) error {
	exists, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := r.client.Indices.Create(r.index,
		r.client.Indices.Create.WithBody(strings.NewReader(activityIndexMapping)),
		r.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return fmt.Errorf("create index %s: %s", r.index, res.Status())
	}
	return nil
}

// Insert indexes a new activity and sets its id from the store.
func (r *ElasticActivityRepository) Insert(ctx context.Context, activity *models.Activity) error {
	body, err := json.Marshal(docFromActivity(activity))
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}

	res, err := r.client.Index(r.index, bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index activity: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index activity", res)
	}

	var created struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return fmt.Errorf("decode index response: %w", err)
	}
	activity.ID = created.ID
	return nil
}

// FindByID loads a single activity.
func (r *ElasticActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	doc, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	activity := doc.Source.toActivity(doc.ID)
	return &activity, nil
}

// ListByOwner returns the owner's activities ordered by creation time.
func (r *ElasticActivityRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Activity, error) {
	return r.search(ctx, map[string]interface{}{
		"term": map[string]interface{}{"user_id": ownerID},
	})
}

// ListPendingByOwners returns pending activities for any of the given owners.
func (r *ElasticActivityRepository) ListPendingByOwners(ctx context.Context, ownerIDs []string) ([]models.Activity, error) {
	if len(ownerIDs) == 0 {
		return []models.Activity{}, nil
	}
	return r.search(ctx, map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": []interface{}{
				map[string]interface{}{"terms": map[string]interface{}{"user_id": ownerIDs}},
				map[string]interface{}{"term": map[string]interface{}{"status": string(models.ActivityPending)}},
			},
		},
	})
}

// Count returns the total number of activity documents.
func (r *ElasticActivityRepository) Count(ctx context.Context) (int, error) {
	res, err := r.client.Count(r.client.Count.WithIndex(r.index), r.client.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("count activities", res)
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return out.Count, nil
}

// CountByOwner returns activity counts keyed by owner. It pages a composite
// aggregation so every owner is counted regardless of how many there are.
func (r *ElasticActivityRepository) CountByOwner(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	var after map[string]interface{}
	for {
		composite := map[string]interface{}{
			"size": r.pageSize,
			"sources": []interface{}{
				map[string]interface{}{"owner": map[string]interface{}{"terms": map[string]interface{}{"field": "user_id"}}},
			},
		}
		if after != nil {
			composite["after"] = after
		}
		out, err := r.doSearch(ctx, map[string]interface{}{
			"size": 0,
			"aggs": map[string]interface{}{"by_owner": map[string]interface{}{"composite": composite}},
		})
		if err != nil {
			return nil, err
		}

		agg := out.Aggregations.ByOwner
		for _, bucket := range agg.Buckets {
			counts[bucket.Key["owner"]] = bucket.DocCount
		}
		if len(agg.Buckets) < r.pageSize || agg.AfterKey == nil {
			return counts, nil
		}
		after = agg.AfterKey
	}
}

// Transition writes the new status only if the document is still in t.From and no other
// writer has touched it since it was read.
func (r *ElasticActivityRepository) Transition(ctx context.Context, id string, t models.ActivityTransition) (*models.Activity, error) {
	current, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Source.Status != t.From {
		return nil, ErrActivityConflict
	}

	activity := current.Source.toActivity(current.ID)
	applyTransition(&activity, t)

	body, err := json.Marshal(docFromActivity(&activity))
	if err != nil {
		return nil, fmt.Errorf("encode activity: %w", err)
	}

	res, err := r.client.Index(r.index, bytes.NewReader(body),
		r.client.Index.WithDocumentID(id),
		r.client.Index.WithIfSeqNo(current.SeqNo),
		r.client.Index.WithIfPrimaryTerm(current.PrimaryTerm),
		r.client.Index.WithRefresh("wait_for"),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode == http.StatusConflict:
		return nil, ErrActivityConflict
	case res.StatusCode == http.StatusNotFound:
		return nil, ErrActivityNotFound
	case res.IsError():
		return nil, responseError("update activity", res)
	}
	return &activity, nil
}

func (r *ElasticActivityRepository) get(ctx context.Context, id string) (*getResponse, error) {
	res, err := r.client.Get(r.index, id, r.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrActivityNotFound
	}
	if res.IsError() {
		return nil, responseError("get activity", res)
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	if !doc.Found {
		return nil, ErrActivityNotFound
	}
	return &doc, nil
}

// search walks every match in created_at order with search_after. The index has a
// single shard, so _doc is a stable tiebreaker between pages.
func (r *ElasticActivityRepository) search(ctx context.Context, query map[string]interface{}) ([]models.Activity, error) {
	activities := make([]models.Activity, 0)
	var after []interface{}
	for {
		body := map[string]interface{}{
			"query": query,
			"size":  r.pageSize,
			"sort": []interface{}{
				map[string]interface{}{"created_at": "asc"},
				map[string]interface{}{"_doc": "asc"},
			},
		}
		if after != nil {
			body["search_after"] = after
		}
		out, err := r.doSearch(ctx, body)
		if err != nil {
			return nil, err
		}

		hits := out.Hits.Hits
		for _, hit := range hits {
			activities = append(activities, hit.Source.toActivity(hit.ID))
		}
		if len(hits) < r.pageSize || len(hits[len(hits)-1].Sort) == 0 {
			return activities, nil
		}
		after = hits[len(hits)-1].Sort
	}
}

func (r *ElasticActivityRepository) doSearch(ctx context.Context, body map[string]interface{}) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(payload)),
		r.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search activities", res)
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}
