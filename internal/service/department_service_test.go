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

type mockDepartmentRepo struct {
	*memSlotStore
	departments map[string]*models.Department
	gallery     map[string]*models.DepartmentGalleryItem
}

func newMockDepartmentRepo(departments ...*models.Department) *mockDepartmentRepo {
	repo := &mockDepartmentRepo{
		memSlotStore: newMemSlotStore(),
		departments:  make(map[string]*models.Department),
		gallery:      make(map[string]*models.DepartmentGalleryItem),
	}
	for _, d := range departments {
		copy := *d
		repo.departments[d.ID] = &copy
		repo.slots[slotKey(d.ID, models.SlotHeroImage)] = d.HeroImage
	}
	return repo
}

func (m *mockDepartmentRepo) List(ctx context.Context, filter models.ContentFilter) ([]models.Department, int, error) {
	var out []models.Department
	for _, d := range m.departments {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockDepartmentRepo) GetByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		copy := *d
		copy.HeroImage = m.slots[slotKey(id, models.SlotHeroImage)]
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	for _, d := range m.departments {
		if d.Code == code {
			copy := *d
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) Create(ctx context.Context, item *models.Department) error {
	copy := *item
	m.departments[item.ID] = &copy
	m.slots[slotKey(item.ID, models.SlotHeroImage)] = item.HeroImage
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, item *models.Department) error {
	copy := *item
	m.departments[item.ID] = &copy
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.departments, id)
	return nil
}

func (m *mockDepartmentRepo) ListGallery(ctx context.Context, departmentID string) ([]models.DepartmentGalleryItem, error) {
	var out []models.DepartmentGalleryItem
	for _, g := range m.gallery {
		if g.DepartmentID == departmentID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockDepartmentRepo) GetGalleryItem(ctx context.Context, id string) (*models.DepartmentGalleryItem, error) {
	if g, ok := m.gallery[id]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) CreateGalleryItem(ctx context.Context, item *models.DepartmentGalleryItem) error {
	copy := *item
	m.gallery[item.ID] = &copy
	return nil
}

func (m *mockDepartmentRepo) DeleteGalleryItem(ctx context.Context, id string) error {
	delete(m.gallery, id)
	return nil
}

func newDepartmentFixture(t *testing.T, storage *memBlobStorage, repo *mockDepartmentRepo, gallerySlots *memSlotStore) (*DepartmentService, *mockActivity) {
	t.Helper()
	attachments := NewAttachmentService(storage, nil, zap.NewNop(), UploadPolicy{MaxFileSizeBytes: 1 << 20})
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	activity := &mockActivity{}
	svc := NewDepartmentService(repo, gallerySlots, attachments, cache, activity, validator.New(), zap.NewNop())
	return svc, activity
}

func TestCreateDepartmentRejectsDuplicateCode(t *testing.T) {
	existing := &models.Department{ID: "d1", Name: "Computer Science", Code: "cse", Active: true}
	repo := newMockDepartmentRepo(existing)
	svc, _ := newDepartmentFixture(t, newMemBlobStorage(), repo, newMemSlotStore())

	_, err := svc.Create(context.Background(), CreateDepartmentRequest{
		Name: "CSE again",
		Code: "cse",
	}, "actor-1", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUpdateDepartmentReplacesHeroImage(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["departments/cse/hero-old.png"] = []byte("old")
	storage.files["departments/cse/hero-new.png"] = []byte("new")
	existing := &models.Department{ID: "d1", Name: "Computer Science", Code: "cse", HeroImage: "departments/cse/hero-old.png", Active: true}
	repo := newMockDepartmentRepo(existing)
	svc, _ := newDepartmentFixture(t, storage, repo, newMemSlotStore())

	updated, err := svc.Update(context.Background(), "d1", UpdateDepartmentRequest{
		Name:         "Computer Science",
		HeroImageKey: "departments/cse/hero-new.png",
	}, "actor-1", models.RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, "departments/cse/hero-new.png", updated.HeroImage)
	assert.False(t, storage.Exists("departments/cse/hero-old.png"))
	assert.True(t, storage.Exists("departments/cse/hero-new.png"))
}

func TestDeleteDepartmentPurgesMediaSubtree(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["departments/cse/hero.png"] = []byte("a")
	storage.files["departments/cse/1.png"] = []byte("b")
	storage.files["departments/cse/2.mp4"] = []byte("c")
	storage.files["departments/ece/hero.png"] = []byte("d")
	existing := &models.Department{ID: "d1", Name: "Computer Science", Code: "cse", HeroImage: "departments/cse/hero.png", Active: true}
	repo := newMockDepartmentRepo(existing)
	svc, activity := newDepartmentFixture(t, storage, repo, newMemSlotStore())

	require.NoError(t, svc.Delete(context.Background(), "d1", "actor-1", models.RequestMeta{}))

	assert.False(t, storage.Exists("departments/cse/hero.png"))
	assert.False(t, storage.Exists("departments/cse/1.png"))
	assert.False(t, storage.Exists("departments/cse/2.mp4"))
	assert.True(t, storage.Exists("departments/ece/hero.png"))
	assert.Contains(t, storage.treePurges, "departments/cse")
	assert.Equal(t, models.AuditActionContentDelete, activity.lastAction())

	_, err := svc.Get(context.Background(), "d1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReplaceGalleryMediaDeletesOldFile(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["departments/cse/g-old.png"] = []byte("old")
	storage.files["departments/cse/g-new.png"] = []byte("new")
	existing := &models.Department{ID: "d1", Name: "Computer Science", Code: "cse", Active: true}
	repo := newMockDepartmentRepo(existing)
	repo.gallery["g1"] = &models.DepartmentGalleryItem{
		ID:           "g1",
		DepartmentID: "d1",
		MediaType:    models.GalleryMediaImage,
		Image:        "departments/cse/g-old.png",
	}
	gallerySlots := newMemSlotStore()
	require.NoError(t, gallerySlots.SetSlot(context.Background(), "g1", models.SlotImage, "departments/cse/g-old.png"))
	svc, _ := newDepartmentFixture(t, storage, repo, gallerySlots)

	item, err := svc.ReplaceGalleryMedia(context.Background(), "g1", "departments/cse/g-new.png", "actor-1", models.RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, "departments/cse/g-new.png", item.Image)
	current, err := gallerySlots.GetSlot(context.Background(), "g1", models.SlotImage)
	require.NoError(t, err)
	assert.Equal(t, "departments/cse/g-new.png", current)
	assert.False(t, storage.Exists("departments/cse/g-old.png"))
	assert.True(t, storage.Exists("departments/cse/g-new.png"))
}

func TestReplaceGalleryMediaUnknownItem(t *testing.T) {
	repo := newMockDepartmentRepo()
	svc, _ := newDepartmentFixture(t, newMemBlobStorage(), repo, newMemSlotStore())

	_, err := svc.ReplaceGalleryMedia(context.Background(), "missing", "departments/cse/x.png", "actor-1", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRemoveGalleryItemPurgesFile(t *testing.T) {
	storage := newMemBlobStorage()
	storage.files["departments/cse/clip.mp4"] = []byte("v")
	existing := &models.Department{ID: "d1", Name: "Computer Science", Code: "cse", Active: true}
	repo := newMockDepartmentRepo(existing)
	repo.gallery["g1"] = &models.DepartmentGalleryItem{
		ID:           "g1",
		DepartmentID: "d1",
		MediaType:    models.GalleryMediaVideo,
		Video:        "departments/cse/clip.mp4",
	}
	svc, activity := newDepartmentFixture(t, storage, repo, newMemSlotStore())

	require.NoError(t, svc.RemoveGalleryItem(context.Background(), "g1", "actor-1", models.RequestMeta{}))

	assert.False(t, storage.Exists("departments/cse/clip.mp4"))
	assert.Equal(t, models.AuditActionContentDelete, activity.lastAction())
	_, err := svc.ListGallery(context.Background(), "d1")
	require.NoError(t, err)
	assert.Empty(t, repo.gallery)
}
