package services

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
	"github.com/BerylCAtieno/document-chat-api/internal/llm"
	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/BerylCAtieno/document-chat-api/internal/repository"
	"github.com/BerylCAtieno/document-chat-api/internal/storage"
	"github.com/BerylCAtieno/document-chat-api/internal/testutil"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator answers from a function and remembers the prompts it saw.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) (string, error)
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.answer(prompt)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fixture struct {
	repo      repository.Repository
	store     storage.Storage
	uploadDir string
	docs      DocumentService
	chat      ChatService
	gen       *fakeGenerator
}

func newFixture(t *testing.T, answer func(string) (string, error)) *fixture {
	t.Helper()

	cfg := &config.Config{
		MaxFileSizeMB:     1,
		AllowedExtensions: ".pdf,.docx,.txt",
		MaxPromptChars:    1000,
	}

	uploadDir := t.TempDir()
	store, err := storage.NewLocalStorage(uploadDir)
	require.NoError(t, err)

	repo := repository.NewRepository(testutil.OpenTestDB(t))
	logger := utils.NewNopLogger()

	if answer == nil {
		answer = func(string) (string, error) { return "The total is $42.", nil }
	}
	gen := &fakeGenerator{answer: answer}
	client := llm.NewClient(gen, 3, time.Second, time.Millisecond, logger)

	return &fixture{
		repo:      repo,
		store:     store,
		uploadDir: uploadDir,
		docs:      NewDocumentService(repo, store, cfg, logger),
		chat:      NewChatService(repo, store, client, cfg, logger),
		gen:       gen,
	}
}

func (f *fixture) upload(t *testing.T, name, content string) *models.UploadResponse {
	t.Helper()
	resp, err := f.docs.UploadDocument(context.Background(), &models.UploadRequest{
		File:        []byte(content),
		Filename:    name,
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func requireKind(t *testing.T, err error, kind utils.ErrorKind, status int) {
	t.Helper()
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, status, appErr.StatusCode)
}

func TestUploadThenGet(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.upload(t, "invoice.txt", "Invoice total: $42")
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "invoice.txt", resp.Filename)
	assert.Equal(t, int64(18), resp.FileSize)
	assert.Equal(t, 1, resp.PageCount)

	doc, err := f.docs.GetDocument(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice.txt", doc.Filename)
	assert.Equal(t, "text/plain", doc.ContentType)
	assert.True(t, strings.HasSuffix(doc.StoredPath, ".txt"))
	assert.NotEqual(t, "invoice.txt", doc.StoredPath)

	assert.Equal(t, []string{doc.StoredPath}, f.storedFiles(t))
}

func TestUploadOverLimitWritesNothing(t *testing.T) {
	f := newFixture(t, nil)

	big := strings.Repeat("a", (1<<20)+1)
	_, err := f.docs.UploadDocument(context.Background(), &models.UploadRequest{
		File:     []byte(big),
		Filename: "big.txt",
	})
	requireKind(t, err, utils.KindValidation, http.StatusBadRequest)

	list, err := f.docs.ListDocuments(context.Background(), models.ListDocumentsRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Documents)
	assert.Empty(t, f.storedFiles(t))
}

// brokenStore fails every write.
type brokenStore struct {
	storage.Storage
}

func (brokenStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return errors.New("disk full")
}

// brokenTxRepo fails to open transactions.
type brokenTxRepo struct {
	repository.Repository
}

func (brokenTxRepo) WithTx(ctx context.Context, fn func(repo repository.Repository) error) error {
	return errors.New("database is locked")
}

func TestUploadStorageFailureSavesNothing(t *testing.T) {
	f := newFixture(t, nil)
	cfg := &config.Config{MaxFileSizeMB: 1, AllowedExtensions: ".pdf,.docx,.txt"}
	docs := NewDocumentService(f.repo, brokenStore{f.store}, cfg, utils.NewNopLogger())

	_, err := docs.UploadDocument(context.Background(), &models.UploadRequest{
		File:     []byte("Invoice total: $42"),
		Filename: "invoice.txt",
	})
	requireKind(t, err, utils.KindStorage, http.StatusInternalServerError)

	rows, err := f.repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUploadMetadataFailureRemovesFile(t *testing.T) {
	f := newFixture(t, nil)
	cfg := &config.Config{MaxFileSizeMB: 1, AllowedExtensions: ".pdf,.docx,.txt"}
	docs := NewDocumentService(brokenTxRepo{f.repo}, f.store, cfg, utils.NewNopLogger())

	_, err := docs.UploadDocument(context.Background(), &models.UploadRequest{
		File:     []byte("Invoice total: $42"),
		Filename: "invoice.txt",
	})
	requireKind(t, err, utils.KindPersistence, http.StatusInternalServerError)

	assert.Empty(t, f.storedFiles(t))
	rows, err := f.repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *models.UploadRequest
	}{
		{"empty", &models.UploadRequest{Filename: "a.txt"}},
		{"extension", &models.UploadRequest{File: []byte("x"), Filename: "a.exe"}},
		{"no text", &models.UploadRequest{File: []byte("   \n  "), Filename: "a.txt"}},
		{"corrupt pdf", &models.UploadRequest{File: []byte("not a pdf"), Filename: "a.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.docs.UploadDocument(ctx, tt.req)
			requireKind(t, err, utils.KindValidation, http.StatusBadRequest)
		})
	}

	assert.Empty(t, f.storedFiles(t))
}

func TestGetMissingDocument(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.docs.GetDocument(context.Background(), utils.GenerateID())
	requireKind(t, err, utils.KindNotFound, http.StatusNotFound)
}

func TestChatMissingDocument(t *testing.T) {
	f := newFixture(t, nil)
	id := utils.GenerateID()

	_, err := f.chat.Ask(context.Background(), id, &models.ChatRequest{Question: "What is the total?"})
	requireKind(t, err, utils.KindNotFound, http.StatusNotFound)

	history, err := f.repo.ListHistory(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.gen.prompts)
}

func TestChatRecordsTurn(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")

	resp, err := f.chat.Ask(context.Background(), doc.ID, &models.ChatRequest{Question: "What is the total?"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, doc.ID, resp.DocumentID)
	assert.Contains(t, f.gen.lastPrompt(), "Invoice total: $42")
	assert.Contains(t, f.gen.lastPrompt(), "What is the total?")

	history, err := f.chat.History(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, history.History, 1)
	assert.Equal(t, resp.HistoryID, history.History[0].ID)
	assert.Equal(t, "What is the total?", history.History[0].Question)
	assert.NotEmpty(t, history.History[0].Answer)
	assert.Equal(t, "fake-model", history.History[0].Model)
}

func TestChatOnlyTextSkipsContent(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")

	_, err := f.chat.Ask(context.Background(), doc.ID, &models.ChatRequest{Question: "Hello", OnlyText: true})
	require.NoError(t, err)
	assert.NotContains(t, f.gen.lastPrompt(), "Invoice total")
}

func TestChatIncludesPriorTurns(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, doc.ID, &models.ChatRequest{Question: "first question"})
	require.NoError(t, err)
	_, err = f.chat.Ask(ctx, doc.ID, &models.ChatRequest{Question: "second question"})
	require.NoError(t, err)

	assert.Contains(t, f.gen.lastPrompt(), "User: first question\nAssistant: The total is $42.")
}

func TestChatLLMFailureStoresNothing(t *testing.T) {
	f := newFixture(t, func(string) (string, error) {
		return "", &llm.ProviderError{Provider: "fake", StatusCode: http.StatusServiceUnavailable, Message: "down"}
	})
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")

	_, err := f.chat.Ask(context.Background(), doc.ID, &models.ChatRequest{Question: "What is the total?"})
	requireKind(t, err, utils.KindLLM, http.StatusServiceUnavailable)
	assert.Len(t, f.gen.prompts, 3)

	history, err := f.chat.History(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, history.History)
}

func TestChatNonTransientLLMFailure(t *testing.T) {
	f := newFixture(t, func(string) (string, error) {
		return "", &llm.ProviderError{Provider: "fake", StatusCode: http.StatusUnauthorized, Message: "bad key"}
	})
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")

	_, err := f.chat.Ask(context.Background(), doc.ID, &models.ChatRequest{Question: "q"})
	requireKind(t, err, utils.KindLLM, http.StatusBadGateway)
	assert.Len(t, f.gen.prompts, 1)
}

func TestChatRejectsBlankQuestion(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")

	_, err := f.chat.Ask(context.Background(), doc.ID, &models.ChatRequest{Question: "   "})
	requireKind(t, err, utils.KindValidation, http.StatusBadRequest)
}

func TestHistoryAscending(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		_, err := f.chat.Ask(ctx, doc.ID, &models.ChatRequest{Question: q})
		require.NoError(t, err)
	}

	history, err := f.chat.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history.History, 3)
	for i, q := range []string{"one", "two", "three"} {
		assert.Equal(t, q, history.History[i].Question)
	}
	for i := 1; i < len(history.History); i++ {
		assert.False(t, history.History[i].CreatedAt.Before(history.History[i-1].CreatedAt))
	}
}

func TestReplaceDocument(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	original := f.upload(t, "old.txt", "old contents")

	before, err := f.docs.GetDocument(ctx, original.ID)
	require.NoError(t, err)

	updated, err := f.docs.ReplaceDocument(ctx, original.ID, &models.UploadRequest{
		File:     []byte("Invoice total: $42"),
		Filename: "new.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.txt", updated.Filename)
	assert.NotEqual(t, before.StoredPath, updated.StoredPath)
	assert.Equal(t, []string{updated.StoredPath}, f.storedFiles(t))

	_, err = f.chat.Ask(ctx, original.ID, &models.ChatRequest{Question: "total?"})
	require.NoError(t, err)
	assert.Contains(t, f.gen.lastPrompt(), "Invoice total: $42")
}

func TestReplaceInvalidKeepsOriginal(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	original := f.upload(t, "old.txt", "old contents")

	before, err := f.docs.GetDocument(ctx, original.ID)
	require.NoError(t, err)

	_, err = f.docs.ReplaceDocument(ctx, original.ID, &models.UploadRequest{File: []byte("x"), Filename: "new.exe"})
	requireKind(t, err, utils.KindValidation, http.StatusBadRequest)

	after, err := f.docs.GetDocument(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, before.StoredPath, after.StoredPath)
	assert.Equal(t, []string{before.StoredPath}, f.storedFiles(t))

	_, err = f.docs.ReplaceDocument(ctx, utils.GenerateID(), &models.UploadRequest{File: []byte("x"), Filename: "a.txt"})
	requireKind(t, err, utils.KindNotFound, http.StatusNotFound)
}

func TestDeleteDocumentRemovesEverything(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.upload(t, "invoice.txt", "Invoice total: $42")

	_, err := f.chat.Ask(ctx, doc.ID, &models.ChatRequest{Question: "q"})
	require.NoError(t, err)

	require.NoError(t, f.docs.DeleteDocument(ctx, doc.ID))
	assert.Empty(t, f.storedFiles(t))

	_, err = f.docs.GetDocument(ctx, doc.ID)
	requireKind(t, err, utils.KindNotFound, http.StatusNotFound)

	history, err := f.repo.ListHistory(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = f.docs.DeleteDocument(ctx, doc.ID)
	requireKind(t, err, utils.KindNotFound, http.StatusNotFound)
}

func TestListDocumentsClampsLimit(t *testing.T) {
	f := newFixture(t, nil)
	f.upload(t, "a.txt", "a")
	f.upload(t, "b.txt", "b")

	list, err := f.docs.ListDocuments(context.Background(), models.ListDocumentsRequest{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, uint(maxListLimit), list.Limit)
	assert.Len(t, list.Documents, 2)

	list, err = f.docs.ListDocuments(context.Background(), models.ListDocumentsRequest{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, list.Documents, 1)
}
