package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matapang/platform/libs/components/approval"
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/database"
	"github.com/matapang/platform/libs/shared/errs"
)

const auditDoc = `{
	"formName": "Daily Safety Audit",
	"sections": [{"title": "General", "fields": [
		{"type": "date", "label": "Audit Date", "required": true},
		{"type": "radio", "label": "Shift", "options": ["A", "B"], "tableConfig": {"rows": 1, "columns": 1}},
		{"type": "grid-table", "label": "Guards",
		 "columns": [{"id": "ok", "label": "OK"}], "items": [{"id": "press", "question": "Press"}]}
	]}],
	"approvalFlow": [{"level": 1, "approverId": "u1"}, {"level": 2, "approverId": "u2"}]
}`

func newRepo(t *testing.T) *GormRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open("form-test", sqlite.Open(dsn), nil)
	require.NoError(t, err)
	repo := NewGormRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestDecodeRunsStructuralThenAuthoringChecks(t *testing.T) {
	doc, err := Decode([]byte(auditDoc))
	require.NoError(t, err)
	assert.Equal(t, "daily_safety_audit", doc.FormID)
	assert.Equal(t, "audit_date", doc.Sections[0].Fields[0].FieldID)
	_, hasTable := doc.Sections[0].Fields[1].Table()
	assert.False(t, hasTable)

	_, err = Decode([]byte(`{"formName": "X", "sections": [{"title": "S", "fields": [{"type": "signature"}]}]}`))
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "document", ve.Code)

	_, err = Decode([]byte(`{"formName": "", "sections": []}`))
	ve, ok = errs.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "form_name", ve.Code)
}

func TestGormRepositoryLifecycle(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, []byte(auditDoc))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, string(schema.FormDraft), created.Status)

	_, doc, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	grid, ok := doc.Sections[0].Fields[2].Grid()
	require.True(t, ok)
	assert.Equal(t, "press", grid.Items[0].ID)
	assert.Equal(t, []string{"u1", "u2"}, doc.Approvers())

	template := strings.Replace(auditDoc, `"formName": "Daily Safety Audit"`, `"formName": "Forklift Check", "isTemplate": true`, 1)
	_, err = svc.Create(ctx, []byte(template))
	require.NoError(t, err)

	yes := true
	list, err := repo.List(ctx, Filter{Template: &yes})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Forklift Check", list[0].FormName)

	list, err = repo.List(ctx, Filter{Search: "SAFETY"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	published, err := svc.Publish(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(schema.FormPublished), published.Status)

	replaced, err := svc.Replace(ctx, created.ID, []byte(`{"formName": "Renamed", "sections": [{"title": "Only", "fields": [{"type": "text", "label": "Note"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, string(schema.FormPublished), replaced.Status, "status survives a replace that omits it")
	assert.Equal(t, "daily_safety_audit", replaced.FormID, "formId is kept after the first save")

	_, doc, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, doc.ApprovalFlow)
	assert.Equal(t, "Renamed", doc.FormName)

	byFormID, err := repo.FindByFormID(ctx, "forklift_check")
	require.NoError(t, err)
	assert.True(t, byFormID.IsTemplate)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), errs.ErrNotFound)
	_, err = repo.Find(ctx, created.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, repo.Replace(ctx, &Form{ID: "missing"}), errs.ErrNotFound)
}

func TestMongoDocumentConversion(t *testing.T) {
	doc, err := Decode([]byte(auditDoc))
	require.NoError(t, err)
	entity, err := FromSchema(doc)
	require.NoError(t, err)
	entity.ID = "f1"

	stored, err := toDocument(entity)
	require.NoError(t, err)
	assert.Equal(t, "f1", stored.ID)
	require.Len(t, stored.Sections, 1)
	assert.Equal(t, []string{"A", "B"}, stored.Sections[0].Fields[1].Options)

	back, err := fromDocument(stored)
	require.NoError(t, err)
	roundTrip, err := back.Schema()
	require.NoError(t, err)
	assert.Equal(t, doc.Sections, roundTrip.Sections)
	assert.Equal(t, doc.ApprovalFlow, roundTrip.ApprovalFlow)
}

func TestListFilter(t *testing.T) {
	yes := true
	f := listFilter(Filter{Search: "a.b", Status: "PUBLISHED", Template: &yes})
	assert.Equal(t, "PUBLISHED", f["status"])
	assert.Equal(t, true, f["isTemplate"])
	assert.Contains(t, f, "$or")
	assert.Empty(t, listFilter(Filter{}))
}

func newServer(t *testing.T) (*httptest.Server, *GormRepository) {
	t.Helper()
	repo := newRepo(t)
	dir := approval.StaticDirectory{"u1": {ID: "u1", Name: "Ana Cruz", Position: "QA Lead"}}
	router := chi.NewRouter()
	NewHandler(NewService(repo, nil), WithDirectory(dir)).Mount(router, "")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, repo
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandlerRoutes(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/forms", "application/json", strings.NewReader(auditDoc))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeData(t, resp)["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "daily_safety_audit", created["formId"])

	resp, err = http.Get(srv.URL + "/forms?search=audit")
	require.NoError(t, err)
	body := decodeData(t, resp)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, float64(300), body["meta"].(map[string]any)["searchDebounceMs"])

	resp, err = http.Get(srv.URL + "/forms/" + id + "/render?readOnly=true")
	require.NoError(t, err)
	view := decodeData(t, resp)["data"].(map[string]any)
	assert.Equal(t, true, view["readOnly"])
	controls := view["sections"].([]any)[0].(map[string]any)["controls"].([]any)
	assert.Len(t, controls, 3)

	resp, err = http.Get(srv.URL + "/forms/" + id + "/approval-chain")
	require.NoError(t, err)
	levels := decodeData(t, resp)["data"].([]any)
	require.Len(t, levels, 2)
	assert.Equal(t, "Ana Cruz", levels[0].(map[string]any)["name"])
	assert.Equal(t, "Approver 2", levels[1].(map[string]any)["name"])

	resp, err = http.Post(srv.URL+"/forms/"+id+"/publish", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, "PUBLISHED", decodeData(t, resp)["data"].(map[string]any)["status"])

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/forms/"+id, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/forms/" + id)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerValidationErrors(t *testing.T) {
	srv, _ := newServer(t)

	noName := `{"formName": "", "sections": []}`
	resp, err := http.Post(srv.URL+"/forms", "application/json", bytes.NewBufferString(noName))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeData(t, resp)
	assert.Equal(t, "form_name", body["code"])
	assert.Equal(t, "Please enter a form name", body["error"])

	resp, err = http.Post(srv.URL+"/forms", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/forms?template=maybe")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
