package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type mockNoticeRepo struct {
	*memSlotStore
	notices map[string]*models.Notice
	lists   int
}

func newMockNoticeRepo(notices ...*models.Notice) *mockNoticeRepo {
	repo := &mockNoticeRepo{memSlotStore: newMemSlotStore(), notices: make(map[string]*models.Notice)}
	for _, n := range notices {
		copy := *n
		repo.notices[n.ID] = &copy
		repo.slots[slotKey(n.ID, models.SlotAttachment)] = n.Attachment
	}
	return repo
}

func (m *mockNoticeRepo) List(ctx context.Context, filter models.ContentFilter) ([]models.Notice, int, error) {
	m.lists++
	var out []models.Notice
	for _, n := range m.notices {
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *mockNoticeRepo) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	if n, ok := m.notices[id]; ok {
		copy := *n
		copy.Attachment = m.slots[slotKey(id, models.SlotAttachment)]
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoticeRepo) Create(ctx context.Context, item *models.Notice) error {
	copy := *item
	m.notices[item.ID] = &copy
	m.slots[slotKey(item.ID, models.SlotAttachment)] = item.Attachment
	return nil
}

func (m *mockNoticeRepo) Update(ctx context.Context, item *models.Notice) error {
	copy := *item
	m.notices[item.ID] = &copy
	return nil
}

func (m *mockNoticeRepo) Delete(ctx context.Context, id string) error {
	delete(m.notices, id)
	return nil
}

func newNoticeFixture(t *testing.T, storage *memBlobStorage, repo *mockNoticeRepo) (*NoticeService, *mockActivity, *CacheService) {
	t.Helper()
	attachments := NewAttachmentService(storage, nil, zap.NewNop(), UploadPolicy{MaxFileSizeBytes: 1 << 20})
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	activity := &mockActivity{}
	svc := NewNoticeService(repo, attachments, cache, activity, validator.New(), zap.NewNop())
	return svc, activity, cache
}

func TestCreateNoticeRecordsAudit(t *testing.T) {
	repo := newMockNoticeRepo()
	svc, activity, _ := newNoticeFixture(t, newMemBlobStorage(), repo)

	notice, err := svc.Create(context.Background(), CreateNoticeRequest{
		Title:    "Exam schedule",
		Body:     "Semester exams begin May 2.",
		Category: "academic",
		Active:   true,
	}, "actor-1", models.RequestMeta{IP: "10.0.0.9"})
	require.NoError(t, err)

	assert.NotEmpty(t, notice.ID)
	assert.Equal(t, models.AuditActionContentCreate, activity.lastAction())
	assert.Equal(t, "10.0.0.9", activity.entries[0].IPAddress)
}

func TestUpdateNoticeReplacesAttachment(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["notices/old.pdf"] = []byte("old")
	storage.files["notices/new.pdf"] = []byte("new")
	existing := &models.Notice{ID: "n1", Title: "T", Body: "B", Category: "general", Attachment: "notices/old.pdf", Active: true}
	repo := newMockNoticeRepo(existing)
	svc, _, _ := newNoticeFixture(t, storage, repo)

	updated, err := svc.Update(context.Background(), "n1", UpdateNoticeRequest{
		Title:         "T2",
		Body:          "B2",
		Category:      "general",
		AttachmentKey: "notices/new.pdf",
	}, "actor-1", models.RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, "notices/new.pdf", updated.Attachment)
	assert.False(t, storage.Exists("notices/old.pdf"))
	assert.True(t, storage.Exists("notices/new.pdf"))
}

func TestUpdateNoticeRemoveAttachment(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["notices/old.pdf"] = []byte("old")
	existing := &models.Notice{ID: "n1", Title: "T", Body: "B", Category: "general", Attachment: "notices/old.pdf", Active: true}
	repo := newMockNoticeRepo(existing)
	svc, _, _ := newNoticeFixture(t, storage, repo)

	updated, err := svc.Update(context.Background(), "n1", UpdateNoticeRequest{
		Title:            "T",
		Body:             "B",
		Category:         "general",
		RemoveAttachment: true,
	}, "actor-1", models.RequestMeta{})
	require.NoError(t, err)

	assert.Empty(t, updated.Attachment)
	assert.False(t, storage.Exists("notices/old.pdf"))
}

func TestDeleteNoticePurgesAttachment(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["notices/a.pdf"] = []byte("a")
	existing := &models.Notice{ID: "n1", Title: "T", Body: "B", Category: "general", Attachment: "notices/a.pdf", Active: true}
	repo := newMockNoticeRepo(existing)
	svc, activity, _ := newNoticeFixture(t, storage, repo)

	require.NoError(t, svc.Delete(context.Background(), "n1", "actor-1", models.RequestMeta{}))

	assert.False(t, storage.Exists("notices/a.pdf"))
	assert.Equal(t, models.AuditActionContentDelete, activity.lastAction())
	_, err := svc.Get(context.Background(), "n1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListNoticesUsesCache(t *testing.T) {
	existing := &models.Notice{ID: "n1", Title: "T", Body: "B", Category: "general", Active: true}
	repo := newMockNoticeRepo(existing)
	svc, _, _ := newNoticeFixture(t, newMemBlobStorage(), repo)

	_, _, hit, err := svc.List(context.Background(), models.ContentFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, hit, err = svc.List(context.Background(), models.ContentFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.lists)

	// A mutation drops the cached list.
	_, err = svc.Create(context.Background(), CreateNoticeRequest{Title: "X", Body: "Y", Category: "general"}, "actor-1", models.RequestMeta{})
	require.NoError(t, err)
	_, _, hit, err = svc.List(context.Background(), models.ContentFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.lists)
}
