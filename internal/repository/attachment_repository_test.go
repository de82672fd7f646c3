package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infoclass-files/config"
	"infoclass-files/internal/model"
	"infoclass-files/internal/repository"
)

func newMockDB(t *testing.T) (*repository.AttachmentRepository, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	repo := repository.NewAttachmentRepository(&config.Database{DB: sqlxDB})
	return repo, mock, sqlxDB
}

func attachmentColumns() []string {
	return []string{
		"uuid", "filename_original", "storage_path", "size_bytes", "mime_type",
		"submission_uuid", "assignment_uuid", "announcement_uuid", "uploaded_by", "created_at", "deleted_at",
	}
}

func TestCreate(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()

	subUUID := "sub1"
	attachment := &model.Attachment{
		UUID:             "att1",
		FilenameOriginal: "report.pdf",
		StoragePath:      "users/user1/attachments/report-abc.pdf",
		SizeBytes:        1024,
		MimeType:         "application/pdf",
		SubmissionUUID:   &subUUID,
		UploadedBy:       "user1",
	}

	mock.ExpectExec("INSERT INTO attachments").
		WithArgs(
			attachment.UUID,
			attachment.FilenameOriginal,
			attachment.StoragePath,
			attachment.SizeBytes,
			attachment.MimeType,
			attachment.SubmissionUUID,
			attachment.AssignmentUUID,
			attachment.AnnouncementUUID,
			attachment.UploadedBy,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(ctx, db, attachment)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUUID(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()

	createdAt := time.Now()
	subUUID := "sub1"
	rows := sqlmock.NewRows(attachmentColumns()).
		AddRow("att1", "report.pdf", "users/user1/attachments/report-abc.pdf", int64(1024), "application/pdf",
			&subUUID, nil, nil, "user1", createdAt, nil)

	mock.ExpectQuery("SELECT (.+) FROM attachments").
		WithArgs("att1").
		WillReturnRows(rows)

	attachment, err := repo.GetByUUID(ctx, db, "att1")

	require.NoError(t, err)
	assert.Equal(t, "att1", attachment.UUID)
	assert.Equal(t, "report.pdf", attachment.FilenameOriginal)
	require.NotNil(t, attachment.SubmissionUUID)
	assert.Equal(t, "sub1", *attachment.SubmissionUUID)
	assert.Equal(t, model.OwnerRef{Kind: model.OwnerSubmission, UUID: "sub1"}, attachment.Owner())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUUID_NotFound(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM attachments").
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	attachment, err := repo.GetByUUID(ctx, db, "unknown")

	assert.Nil(t, attachment)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()
	owner := model.OwnerRef{Kind: model.OwnerSubmission, UUID: "sub1"}

	subUUID := "sub1"
	now := time.Now()
	rows := sqlmock.NewRows(attachmentColumns()).
		AddRow("att1", "a.pdf", "users/u/attachments/a-1.pdf", int64(10), "application/pdf",
			&subUUID, nil, nil, "user1", now, nil).
		AddRow("att2", "b.pdf", "users/u/attachments/b-2.pdf", int64(20), "application/pdf",
			&subUUID, nil, nil, "user1", now.Add(time.Second), nil)

	mock.ExpectQuery("SELECT (.+) FROM attachments WHERE submission_uuid").
		WithArgs("sub1").
		WillReturnRows(rows)

	attachments, err := repo.ListByOwner(ctx, db, owner)

	require.NoError(t, err)
	require.Len(t, attachments, 2)
	assert.Equal(t, "att1", attachments[0].UUID)
	assert.Equal(t, "att2", attachments[1].UUID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwner_Empty(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()
	owner := model.OwnerRef{Kind: model.OwnerAssignment, UUID: "asg1"}

	mock.ExpectQuery("SELECT (.+) FROM attachments WHERE assignment_uuid").
		WithArgs("asg1").
		WillReturnRows(sqlmock.NewRows(attachmentColumns()))

	attachments, err := repo.ListByOwner(ctx, db, owner)

	require.NoError(t, err)
	assert.Empty(t, attachments)
	// пустой список, а не nil: сериализуется как [] в JSON
	assert.NotNil(t, attachments)
}

func TestCountByOwner(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()
	owner := model.OwnerRef{Kind: model.OwnerSubmission, UUID: "sub1"}

	mock.ExpectQuery("SELECT COUNT(.+) FROM attachments").
		WithArgs("sub1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByOwner(ctx, db, owner)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSetOwner(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()
	owner := model.OwnerRef{Kind: model.OwnerAssignment, UUID: "asg1"}

	mock.ExpectExec("UPDATE attachments").
		WithArgs("att1", "asg1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetOwner(ctx, db, "att1", owner)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOwner_NotFound(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()
	owner := model.OwnerRef{Kind: model.OwnerAssignment, UUID: "asg1"}

	mock.ExpectExec("UPDATE attachments").
		WithArgs("unknown", "asg1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetOwner(ctx, db, "unknown", owner)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "вложение не найдено")
}

func TestDelete(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()

	// UPDATE ... RETURNING ходит через Query, а не Exec
	mock.ExpectQuery("UPDATE attachments SET deleted_at").
		WithArgs("att1").
		WillReturnRows(sqlmock.NewRows([]string{"storage_path"}).AddRow("users/u/attachments/a-1.pdf"))

	storagePath, err := repo.Delete(ctx, db, "att1")

	require.NoError(t, err)
	assert.Equal(t, "users/u/attachments/a-1.pdf", storagePath)
}

func TestDelete_AlreadyDeleted(t *testing.T) {
	repo, mock, db := newMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery("UPDATE attachments SET deleted_at").
		WithArgs("att1").
		WillReturnError(sql.ErrNoRows)

	storagePath, err := repo.Delete(ctx, db, "att1")

	assert.Empty(t, storagePath)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
