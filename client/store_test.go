package client_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infoclass-files/client"
	"infoclass-files/internal/model"
)

const megabyte = 1024 * 1024

func newTestStore() *client.Store {
	return client.NewStore(5, 10*megabyte)
}

func stagedFile(name string, sizeBytes int64) client.StagedFile {
	return client.StagedFile{Path: "/tmp/" + name, Name: name, SizeBytes: sizeBytes}
}

func submissionOwner(uuid string) model.OwnerRef {
	return model.OwnerRef{Kind: model.OwnerSubmission, UUID: uuid}
}

func TestStage_AllAccepted(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	accepted, rejected := store.Stage([]client.StagedFile{
		stagedFile("a.pdf", 2*megabyte),
		stagedFile("b.docx", 3*megabyte),
		stagedFile("c.png", 1*megabyte),
	}, owner)

	assert.Len(t, accepted, 3)
	assert.Empty(t, rejected)
	assert.Len(t, store.ListFor(owner), 3)
}

func TestStage_TooManyFiles(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	files := []client.StagedFile{
		stagedFile("1.pdf", megabyte),
		stagedFile("2.pdf", megabyte),
		stagedFile("3.pdf", megabyte),
		stagedFile("4.pdf", megabyte),
		stagedFile("5.pdf", megabyte),
		stagedFile("6.pdf", megabyte),
	}

	accepted, rejected := store.Stage(files, owner)

	require.Len(t, accepted, 5)
	// принимаются первые пять в порядке выбора
	for i := 0; i < 5; i++ {
		assert.Equal(t, files[i].Name, accepted[i].Name)
	}
	require.Len(t, rejected, 1)
	assert.Equal(t, "6.pdf", rejected[0].File.Name)
	assert.Equal(t, client.ReasonTooManyFiles, rejected[0].Reason)
}

func TestStage_FileTooLarge(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	accepted, rejected := store.Stage([]client.StagedFile{
		stagedFile("big.pdf", 15*megabyte),
	}, owner)

	assert.Empty(t, accepted)
	require.Len(t, rejected, 1)
	assert.Equal(t, client.ReasonFileTooLarge, rejected[0].Reason)
	assert.Empty(t, store.Pending(owner))
}

func TestStage_OversizedDoesNotConsumeSlot(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	// слишком большой файл в середине не влияет на лимит количества
	accepted, rejected := store.Stage([]client.StagedFile{
		stagedFile("1.pdf", megabyte),
		stagedFile("big.pdf", 11*megabyte),
		stagedFile("2.pdf", megabyte),
		stagedFile("3.pdf", megabyte),
		stagedFile("4.pdf", megabyte),
		stagedFile("5.pdf", megabyte),
	}, owner)

	assert.Len(t, accepted, 5)
	require.Len(t, rejected, 1)
	assert.Equal(t, "big.pdf", rejected[0].File.Name)
	assert.Equal(t, client.ReasonFileTooLarge, rejected[0].Reason)
}

func TestStage_CountsPersisted(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	subUUID := "sub1"
	for _, uuid := range []string{"att1", "att2", "att3", "att4"} {
		store.RecordPersisted(&model.Attachment{
			UUID:             uuid,
			FilenameOriginal: uuid + ".pdf",
			SubmissionUUID:   &subUUID,
		})
	}

	accepted, rejected := store.Stage([]client.StagedFile{
		stagedFile("a.pdf", megabyte),
		stagedFile("b.pdf", megabyte),
	}, owner)

	assert.Len(t, accepted, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, client.ReasonTooManyFiles, rejected[0].Reason)
}

func TestRecordPersisted_Idempotent(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	subUUID := "sub1"
	attachment := &model.Attachment{
		UUID:             "att1",
		FilenameOriginal: "a.pdf",
		SubmissionUUID:   &subUUID,
	}

	store.RecordPersisted(attachment)
	store.RecordPersisted(attachment)

	assert.Len(t, store.ListFor(owner), 1)
}

func TestRecordPersisted_MovesFromQueue(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	store.Stage([]client.StagedFile{stagedFile("a.pdf", megabyte)}, owner)
	require.Len(t, store.Pending(owner), 1)

	subUUID := "sub1"
	store.RecordPersisted(&model.Attachment{
		UUID:             "att1",
		FilenameOriginal: "a.pdf",
		SubmissionUUID:   &subUUID,
	})

	assert.Empty(t, store.Pending(owner))
	items := store.ListFor(owner)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Persisted)
	assert.Equal(t, "att1", items[0].Persisted.UUID)
}

func TestRecordDeleted_RoundTrip(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	before := store.ListFor(owner)

	subUUID := "sub1"
	store.RecordPersisted(&model.Attachment{
		UUID:             "att1",
		FilenameOriginal: "a.pdf",
		SubmissionUUID:   &subUUID,
	})
	store.RecordDeleted("att1")

	assert.Equal(t, before, store.ListFor(owner))
}

func TestRecordDeleted_MissingIsNoop(t *testing.T) {
	store := newTestStore()

	// подтверждение удаления может прийти после локального удаления
	assert.NotPanics(t, func() {
		store.RecordDeleted("unknown")
	})
}

func TestListFor_InsertionOrder(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	subUUID := "sub1"
	store.RecordPersisted(&model.Attachment{UUID: "att1", FilenameOriginal: "1.pdf", SubmissionUUID: &subUUID})
	store.RecordPersisted(&model.Attachment{UUID: "att2", FilenameOriginal: "2.pdf", SubmissionUUID: &subUUID})
	store.Stage([]client.StagedFile{stagedFile("new.pdf", megabyte)}, owner)

	items := store.ListFor(owner)
	require.Len(t, items, 3)

	// сначала очередь загрузки, затем сохранённые в порядке прихода
	require.NotNil(t, items[0].Staged)
	assert.Equal(t, "new.pdf", items[0].Staged.Name)
	require.NotNil(t, items[1].Persisted)
	assert.Equal(t, "att1", items[1].Persisted.UUID)
	require.NotNil(t, items[2].Persisted)
	assert.Equal(t, "att2", items[2].Persisted.UUID)
}

func TestRelink_MovesOwnerlessToOwner(t *testing.T) {
	store := newTestStore()
	owner := model.OwnerRef{Kind: model.OwnerAssignment, UUID: "asg1"}

	store.RecordPersisted(&model.Attachment{UUID: "att1", FilenameOriginal: "a.pdf"})
	require.Len(t, store.Ownerless(), 1)

	store.Relink("att1", owner)

	assert.Empty(t, store.Ownerless())
	items := store.ListFor(owner)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Persisted)
	assert.Equal(t, owner, items[0].Persisted.Owner())
}

func TestSubscribe_NotifiedOnStage(t *testing.T) {
	store := newTestStore()
	owner := submissionOwner("sub1")

	var events []client.Event
	store.Subscribe(func(e client.Event) {
		events = append(events, e)
	})

	store.Stage([]client.StagedFile{stagedFile("a.pdf", megabyte)}, owner)

	require.Len(t, events, 1)
	assert.Equal(t, owner, events[0].Owner)
}
