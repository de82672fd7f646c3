package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"infoclass-files/client"
	"infoclass-files/internal/model"
)

func ownerlessAttachment(uuid, name string) *model.Attachment {
	return &model.Attachment{UUID: uuid, FilenameOriginal: name}
}

func TestAssociate_LinksAllOwnerless(t *testing.T) {
	store := newTestStore()
	mockTransfer := new(MockTransfer)
	resolver := client.NewResolver(store, mockTransfer)
	owner := model.OwnerRef{Kind: model.OwnerAssignment, UUID: "asg1"}

	store.RecordPersisted(ownerlessAttachment("att1", "a.pdf"))
	store.RecordPersisted(ownerlessAttachment("att2", "b.pdf"))

	mockTransfer.On("Reassociate", mock.Anything, "att1", owner).Return(persistedFor(owner, "att1", "a.pdf"), nil)
	mockTransfer.On("Reassociate", mock.Anything, "att2", owner).Return(persistedFor(owner, "att2", "b.pdf"), nil)

	result, err := resolver.Associate(context.Background(), owner)

	require.NoError(t, err)
	assert.Len(t, result.Linked, 2)
	assert.Empty(t, result.Failed)
	assert.Empty(t, store.Ownerless())
	assert.Len(t, store.ListFor(owner), 2)
	mockTransfer.AssertExpectations(t)
}

func TestAssociate_PartialFailure(t *testing.T) {
	store := newTestStore()
	mockTransfer := new(MockTransfer)
	resolver := client.NewResolver(store, mockTransfer)
	owner := model.OwnerRef{Kind: model.OwnerAnnouncement, UUID: "ann1"}

	store.RecordPersisted(ownerlessAttachment("att1", "a.pdf"))
	store.RecordPersisted(ownerlessAttachment("att2", "b.pdf"))

	transferErr := &client.TransferError{StatusCode: 500, Message: "внутренняя ошибка сервера"}
	mockTransfer.On("Reassociate", mock.Anything, "att1", owner).Return(persistedFor(owner, "att1", "a.pdf"), nil)
	mockTransfer.On("Reassociate", mock.Anything, "att2", owner).Return(nil, transferErr)

	result, err := resolver.Associate(context.Background(), owner)

	require.NoError(t, err)
	require.Len(t, result.Linked, 1)
	assert.Equal(t, "att1", result.Linked[0].UUID)

	// ошибка одного вложения не блокирует остальные
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "att2", result.Failed[0].Attachment.UUID)

	// неудачное вложение остаётся непривязанным для повтора
	orphans := store.Ownerless()
	require.Len(t, orphans, 1)
	assert.Equal(t, "att2", orphans[0].UUID)
}

func TestAssociate_PendingOwnerRejected(t *testing.T) {
	store := newTestStore()
	mockTransfer := new(MockTransfer)
	resolver := client.NewResolver(store, mockTransfer)

	result, err := resolver.Associate(context.Background(), model.OwnerRef{})

	assert.Nil(t, result)
	assert.Error(t, err)
	mockTransfer.AssertNotCalled(t, "Reassociate")
}

func TestAssociate_NothingToLink(t *testing.T) {
	store := newTestStore()
	mockTransfer := new(MockTransfer)
	resolver := client.NewResolver(store, mockTransfer)
	owner := model.OwnerRef{Kind: model.OwnerAssignment, UUID: "asg1"}

	result, err := resolver.Associate(context.Background(), owner)

	require.NoError(t, err)
	assert.Empty(t, result.Linked)
	assert.Empty(t, result.Failed)
	mockTransfer.AssertNotCalled(t, "Reassociate")
}
