package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows        []TimelineRow
	lastLimit   int
	lastOffset  int
	lastFilters TimelineFilters
}

func (s *stubRepo) Window(_ context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastFilters, s.lastLimit, s.lastOffset = filters, limit, offset
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *stubRepo) All(_ context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	s.lastFilters = filters
	return s.rows, nil
}

func rowsFixture(n int) []TimelineRow {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{
			ID:       int64(n - i),
			At:       base.Add(-time.Duration(i) * time.Hour),
			Action:   "article.approve",
			Entity:   "article",
			EntityID: "42",
			Meta:     json.RawMessage(`{"from":"in_review","to":"approved"}`),
		}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: rowsFixture(3)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
	assert.Equal(t, 2, repo.lastOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, result.Paging.PageSize)
	assert.Equal(t, maxPageSize+1, repo.lastLimit)
	assert.NotNil(t, result.Rows)

	result, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, result.Paging.PageSize)
	assert.Equal(t, 1, result.Paging.Page)
}

func TestExportPassesFilters(t *testing.T) {
	repo := &stubRepo{rows: rowsFixture(2)}
	svc := NewService(repo)
	filters := TimelineFilters{Entity: "setting", Action: "setting.update"}

	rows, err := svc.Export(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, filters, repo.lastFilters)
}

func TestServiceWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	assert.Error(t, err)
	_, err = NewService(nil).Export(context.Background(), TimelineFilters{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	actor := int64(7)
	rows := rowsFixture(2)
	rows[0].ActorID = &actor
	rows[0].Actor = "editor"

	out, err := WriteCSV(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"2", "2024-03-10T10:00:00Z", "7", "editor", "article.approve", "article", "42", `{"from":"in_review","to":"approved"}`}, records[1])
	assert.Equal(t, "", records[2][2])
	assert.Equal(t, "system", records[2][3])
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(TimelineFilters{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	where, args = buildWhere(TimelineFilters{From: from, ActorID: 3, Entity: " article ", Action: "article.publish"})
	assert.Equal(t, " WHERE a.occurred_at >= $1 AND a.actor_id = $2 AND a.entity = $3 AND a.action = $4", where)
	assert.Equal(t, []any{from, int64(3), "article", "article.publish"}, args)
}
