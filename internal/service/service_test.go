package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/mocks"
	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/service"
)

func newServices(repo *mocks.MockPostRepository, guard auth.Guard, opts service.Options) *service.Services {
	return service.NewServices(&repository.Repositories{Post: repo}, guard, opts, zerolog.Nop())
}

func TestPostService_SubmitNewCreatesAndRedirects(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	out, err := svc.Posts.Submit(context.Background(), &service.Submission{
		Intent: "new", Title: "Hello", Slug: "hello", Markdown: "# Hi",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if out.RedirectTo != "/posts/admin/hello" {
		t.Errorf("Expected redirect to /posts/admin/hello, got %q", out.RedirectTo)
	}

	got, err := repo.Get(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Post should be stored: %v", err)
	}
	if *got != (models.Post{Title: "Hello", Slug: "hello", Markdown: "# Hi"}) {
		t.Errorf("Unexpected stored post %+v", got)
	}
}

func TestPostService_SubmitInvalidLeavesStoreUnchanged(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	out, err := svc.Posts.Submit(context.Background(), &service.Submission{
		Intent: "new", Title: "", Slug: "x", Markdown: "y",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if out.Redirected() {
		t.Errorf("Invalid submission should not redirect, got %q", out.RedirectTo)
	}

	data, _ := json.Marshal(out.Errors)
	if string(data) != `{"title":"Title is required","slug":null,"markdown":null}` {
		t.Errorf("Unexpected errors %s", data)
	}
	if out.Draft.Slug != "x" || out.Draft.Markdown != "y" {
		t.Errorf("Draft should echo the submission, got %+v", out.Draft)
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}
}

func TestPostService_SubmitAllFieldsMissing(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	out, err := svc.Posts.Submit(context.Background(), &service.Submission{
		Intent: "edit", CurrentSlug: "a", Title: "  ", Slug: "", Markdown: "\n",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	for _, field := range []string{models.FieldTitle, models.FieldSlug, models.FieldMarkdown} {
		if out.Errors.Get(field) == "" {
			t.Errorf("Expected an error for %s", field)
		}
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}
}

func TestPostService_SubmitDelete(t *testing.T) {
	repo := mocks.NewMockPostRepository(models.Post{Title: "Hello", Slug: "hello", Markdown: "# Hi"})
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	// Delete ignores the other fields entirely
	out, err := svc.Posts.Submit(context.Background(), &service.Submission{Intent: "delete", Slug: "hello"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if out.RedirectTo != service.AdminListPath {
		t.Errorf("Expected redirect to listing, got %q", out.RedirectTo)
	}
	if _, err := repo.Get(context.Background(), "hello"); !errors.Is(err, repository.ErrPostNotFound) {
		t.Errorf("Post should be gone, got %v", err)
	}

	_, err = svc.Posts.Submit(context.Background(), &service.Submission{Intent: "delete", Slug: "hello"})
	if !errors.Is(err, repository.ErrPostNotFound) {
		t.Errorf("Second delete should report not found, got %v", err)
	}
}

func TestPostService_SubmitDeleteRequiresSlug(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	_, err := svc.Posts.Submit(context.Background(), &service.Submission{Intent: "delete", Slug: " "})
	if !errors.Is(err, service.ErrSlugRequired) {
		t.Errorf("Expected ErrSlugRequired, got %v", err)
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}
}

func TestPostService_SubmitUnknownIntent(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	_, err := svc.Posts.Submit(context.Background(), &service.Submission{
		Intent: "publish", Title: "t", Slug: "s", Markdown: "m",
	})
	if !errors.Is(err, service.ErrUnrecognizedIntent) {
		t.Errorf("Expected ErrUnrecognizedIntent, got %v", err)
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}
}

func TestPostService_SubmitEditRenames(t *testing.T) {
	repo := mocks.NewMockPostRepository(models.Post{Title: "Old", Slug: "old", Markdown: "body"})
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	out, err := svc.Posts.Submit(context.Background(), &service.Submission{
		Intent: "edit", CurrentSlug: "old", Title: "New", Slug: "new", Markdown: "body 2",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if out.RedirectTo != "/posts/admin/new" {
		t.Errorf("Expected redirect to the new slug, got %q", out.RedirectTo)
	}
	if len(repo.UpdateCalls) != 1 || repo.UpdateCalls[0].Slug != "old" {
		t.Fatalf("Update should look up the current slug, got %+v", repo.UpdateCalls)
	}
	if got := repo.UpdateCalls[0].Post; got.Title != "New" || got.Slug != "new" {
		t.Errorf("Unexpected updated post %+v", got)
	}
	if _, err := repo.Get(context.Background(), "old"); !errors.Is(err, repository.ErrPostNotFound) {
		t.Errorf("Old slug should no longer resolve, got %v", err)
	}
}

func TestPostService_SubmitKeepsValuesVerbatim(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	t.Run("stored as given", func(t *testing.T) {
		out, err := svc.Posts.Submit(context.Background(), &service.Submission{
			Intent: "new", Title: " Padded ", Slug: " padded ", Markdown: "  indented\n",
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if out.RedirectTo != "/posts/admin/%20padded%20" {
			t.Errorf("Unexpected redirect %q", out.RedirectTo)
		}
		got, err := repo.Get(context.Background(), " padded ")
		if err != nil {
			t.Fatalf("Post should be stored under the literal slug: %v", err)
		}
		if got.Title != " Padded " || got.Markdown != "  indented\n" {
			t.Errorf("Unexpected stored post %+v", got)
		}
	})

	t.Run("echoed on rejection", func(t *testing.T) {
		sub := service.Submission{Intent: "new", Title: "  ", Slug: " s ", Markdown: " m "}
		out, err := svc.Posts.Submit(context.Background(), &sub)
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if out.Errors.Get(models.FieldTitle) == "" {
			t.Error("Whitespace-only title should be rejected")
		}
		want := models.Post{Title: sub.Title, Slug: sub.Slug, Markdown: sub.Markdown}
		if out.Draft != want {
			t.Errorf("Draft should echo the submission, got %+v", out.Draft)
		}
	})
}

func TestPostService_SubmitConflict(t *testing.T) {
	repo := mocks.NewMockPostRepository(
		models.Post{Title: "A", Slug: "a", Markdown: "a"},
		models.Post{Title: "B", Slug: "b", Markdown: "b"},
	)
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	tests := []struct {
		name string
		sub  service.Submission
	}{
		{name: "create duplicate", sub: service.Submission{Intent: "new", Title: "A2", Slug: "a", Markdown: "x"}},
		{name: "rename onto existing", sub: service.Submission{Intent: "edit", CurrentSlug: "b", Title: "B", Slug: "a", Markdown: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Posts.Submit(context.Background(), &tt.sub)
			if !errors.Is(err, repository.ErrPostConflict) {
				t.Fatalf("Expected ErrPostConflict, got %v", err)
			}
			if out == nil || out.Errors.Get(models.FieldSlug) != service.MsgSlugTaken {
				t.Errorf("Expected slug error on outcome, got %+v", out)
			}
		})
	}

	got, _ := repo.Get(context.Background(), "a")
	if got.Title != "A" {
		t.Errorf("Existing post should be untouched, got %+v", got)
	}
}

func TestPostService_RequiresAdmin(t *testing.T) {
	repo := mocks.NewMockPostRepository(models.Post{Title: "A", Slug: "a", Markdown: "a"})
	guard := mocks.NewDenyGuard()
	svc := newServices(repo, guard, service.Options{})
	ctx := context.Background()

	if _, err := svc.Posts.Submit(ctx, &service.Submission{Intent: "delete", Slug: "a"}); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("Submit: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Posts.ListAdmin(ctx); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("ListAdmin: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Posts.GetAdmin(ctx, "a"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("GetAdmin: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Posts.LoadEditor(ctx, "new"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("LoadEditor: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Posts.Preview(ctx, &service.Submission{Title: "t"}); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("Preview: expected ErrUnauthorized, got %v", err)
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}

	// Public reads skip the guard
	calls := guard.Calls
	if _, err := svc.Posts.GetPublic(ctx, "a"); err != nil {
		t.Errorf("GetPublic failed: %v", err)
	}
	if guard.Calls != calls {
		t.Error("Public reads should not consult the guard")
	}
}

func TestPostService_LoadEditor(t *testing.T) {
	repo := mocks.NewMockPostRepository(models.Post{Title: "A", Slug: "a", Markdown: "a"})
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	post, err := svc.Posts.LoadEditor(context.Background(), service.NewPostSlug)
	if err != nil || post != nil {
		t.Errorf("New editor should be empty, got %+v, %v", post, err)
	}

	post, err = svc.Posts.LoadEditor(context.Background(), "a")
	if err != nil || post.Title != "A" {
		t.Errorf("Expected stored post, got %+v, %v", post, err)
	}

	if _, err := svc.Posts.LoadEditor(context.Background(), "missing"); !errors.Is(err, repository.ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}
}

func TestPostService_PreviewDoesNotStore(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	post, err := svc.Posts.Preview(context.Background(), &service.Submission{Title: " Draft ", Slug: "", Markdown: "*x*"})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if post.Title != " Draft " || post.Markdown != "*x*" {
		t.Errorf("Unexpected preview %+v", post)
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}
}

func TestPostService_SubmitDelayHonorsContext(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{SubmitDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Posts.Submit(ctx, &service.Submission{Intent: "new", Title: "t", Slug: "s", Markdown: "m"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if repo.Writes() != 0 {
		t.Errorf("Store should not be touched, got %d writes", repo.Writes())
	}
}

func TestPostService_SubmitDelayElapses(t *testing.T) {
	repo := mocks.NewMockPostRepository()
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{SubmitDelay: 10 * time.Millisecond})

	start := time.Now()
	out, err := svc.Posts.Submit(context.Background(), &service.Submission{Intent: "new", Title: "t", Slug: "s", Markdown: "m"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Submit should wait for the configured delay")
	}
	if !out.Redirected() {
		t.Error("Expected a redirect")
	}
}

func TestExportService_StreamPosts(t *testing.T) {
	repo := mocks.NewMockPostRepository(
		models.Post{Title: "A", Slug: "a", Markdown: "one"},
		models.Post{Title: "B", Slug: "b", Markdown: "two"},
	)
	svc := newServices(repo, mocks.NewAllowGuard(), service.Options{})

	t.Run("ndjson", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := svc.Export.StreamPosts(context.Background(), w, service.FormatNDJSON); err != nil {
			t.Fatalf("StreamPosts failed: %v", err)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
			t.Errorf("Unexpected content type %q", ct)
		}
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d: %q", len(lines), w.Body.String())
		}
		var first models.Post
		if err := json.Unmarshal([]byte(lines[0]), &first); err != nil || first.Slug != "a" {
			t.Errorf("Unexpected first record %q (%v)", lines[0], err)
		}
	})

	t.Run("json", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := svc.Export.StreamPosts(context.Background(), w, service.FormatJSON); err != nil {
			t.Fatalf("StreamPosts failed: %v", err)
		}
		var posts []models.Post
		if err := json.Unmarshal(w.Body.Bytes(), &posts); err != nil {
			t.Fatalf("Body is not a JSON array: %v", err)
		}
		if len(posts) != 2 || posts[1].Slug != "b" {
			t.Errorf("Unexpected posts %+v", posts)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := svc.Export.StreamPosts(context.Background(), w, "csv")
		if !errors.Is(err, service.ErrUnsupportedFormat) {
			t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
		}
		if w.Body.Len() != 0 {
			t.Errorf("Nothing should be written, got %q", w.Body.String())
		}
	})
}

func TestExportService_RequiresAdmin(t *testing.T) {
	repo := mocks.NewMockPostRepository(models.Post{Title: "A", Slug: "a", Markdown: "one"})
	svc := newServices(repo, mocks.NewDenyGuard(), service.Options{})

	w := httptest.NewRecorder()
	if err := svc.Export.StreamPosts(context.Background(), w, service.FormatJSON); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Nothing should be written, got %q", w.Body.String())
	}
}

func TestAdminPostPath_EscapesSlug(t *testing.T) {
	if got := service.AdminPostPath("a b/c"); got != "/posts/admin/a%20b%2Fc" {
		t.Errorf("Unexpected path %q", got)
	}
}
