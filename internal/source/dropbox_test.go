package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
)

// fakeFilesClient implements the subset of files.Client the adapter uses.
// Listing results are served page by page to exercise cursor continuation.
type fakeFilesClient struct {
	files.Client

	pages    []*files.ListFolderResult
	pageIdx  int
	listErr  error
	content  string
	downErr  error
	lastArgs []*files.ListFolderArg
}

func (f *fakeFilesClient) ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error) {
	f.lastArgs = append(f.lastArgs, arg)
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.pageIdx = 0
	return f.nextPage()
}

func (f *fakeFilesClient) ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error) {
	return f.nextPage()
}

func (f *fakeFilesClient) nextPage() (*files.ListFolderResult, error) {
	res := f.pages[f.pageIdx]
	f.pageIdx++
	return res, nil
}

func (f *fakeFilesClient) Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error) {
	if f.downErr != nil {
		return nil, nil, f.downErr
	}
	return fileMeta("x", arg.Path), io.NopCloser(strings.NewReader(f.content)), nil
}

func fileMeta(name, path string) *files.FileMetadata {
	fm := &files.FileMetadata{}
	fm.Name = name
	fm.PathDisplay = path
	return fm
}

func folderMeta(name, path string) *files.FolderMetadata {
	fm := &files.FolderMetadata{}
	fm.Name = name
	fm.PathDisplay = path
	return fm
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestWalkFollowsPagination verifies files from every page are seen and
// folders are skipped.
func TestWalkFollowsPagination(t *testing.T) {
	client := &fakeFilesClient{
		pages: []*files.ListFolderResult{
			{
				Entries: []files.IsMetadata{
					fileMeta("a.mp4", "/Jobs/J606_Magic/a.mp4"),
					folderMeta("J606_Magic", "/Jobs/J606_Magic"),
				},
				Cursor:  "c1",
				HasMore: true,
			},
			{
				Entries: []files.IsMetadata{
					fileMeta("b.mp4", "/Jobs/J607_Other/b.mp4"),
				},
				HasMore: false,
			},
		},
	}

	s := newWithClient(client, testLogger())

	var got []File
	err := s.Walk(context.Background(), "/Jobs", func(f File) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got))
	}
	if got[0].Name != "a.mp4" || got[0].JobNumber != 606 {
		t.Errorf("unexpected first file: %+v", got[0])
	}
	if got[1].JobNumber != 607 {
		t.Errorf("expected job 607, got %d", got[1].JobNumber)
	}
	if !client.lastArgs[0].Recursive {
		t.Error("expected recursive listing")
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	client := &fakeFilesClient{
		pages: []*files.ListFolderResult{
			{
				Entries: []files.IsMetadata{
					fileMeta("a.mp4", "/a.mp4"),
					fileMeta("b.mp4", "/b.mp4"),
				},
			},
		},
	}

	s := newWithClient(client, testLogger())

	sentinel := errors.New("stop")
	seen := 0
	err := s.Walk(context.Background(), "/", func(File) error {
		seen++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if seen != 1 {
		t.Errorf("expected walk to stop after first file, saw %d", seen)
	}
}

// TestListAll verifies the materialized listing spans every page.
func TestListAll(t *testing.T) {
	client := &fakeFilesClient{
		pages: []*files.ListFolderResult{
			{
				Entries: []files.IsMetadata{
					fileMeta("a.mp4", "/Jobs/J606_Magic/a.mp4"),
				},
				Cursor:  "c1",
				HasMore: true,
			},
			{
				Entries: []files.IsMetadata{
					fileMeta("b.mp4", "/Jobs/J607_Other/b.mp4"),
					folderMeta("J607_Other", "/Jobs/J607_Other"),
				},
				HasMore: false,
			},
		},
	}

	s := newWithClient(client, testLogger())

	got, err := s.ListAll(context.Background(), "/Jobs")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got))
	}
	if got[1].Name != "b.mp4" || got[1].JobNumber != 607 {
		t.Errorf("unexpected second file: %+v", got[1])
	}
}

// TestListJobFolders verifies only immediate job-numbered folders within
// the window survive.
func TestListJobFolders(t *testing.T) {
	client := &fakeFilesClient{
		pages: []*files.ListFolderResult{
			{
				Entries: []files.IsMetadata{
					folderMeta("J600_Low", "/Jobs/J600_Low"),
					folderMeta("J606_Magic", "/Jobs/J606_Magic"),
					folderMeta("J700_High", "/Jobs/J700_High"),
					folderMeta("Exports", "/Jobs/Exports"),
					fileMeta("stray.mp4", "/Jobs/stray.mp4"),
				},
			},
		},
	}

	s := newWithClient(client, testLogger())

	jobs, err := s.ListJobFolders(context.Background(), "/Jobs", 601, 700)
	if err != nil {
		t.Fatalf("ListJobFolders failed: %v", err)
	}

	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Number != 606 || jobs[0].Name != "J606_Magic" {
		t.Errorf("unexpected job: %+v", jobs[0])
	}
	if client.lastArgs[0].Recursive {
		t.Error("expected non-recursive listing of job folders")
	}
}

func TestDownloadWritesDestination(t *testing.T) {
	client := &fakeFilesClient{content: "video-bytes"}
	s := newWithClient(client, testLogger())

	dest := filepath.Join(t.TempDir(), "sub", "a.mp4")
	err := s.Download(context.Background(), File{Name: "a.mp4", Path: "/a.mp4"}, dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestDecodeErrorDescribed(t *testing.T) {
	apiErr := files.ListFolderAPIError{}
	apiErr.ErrorSummary = "path/not_found/"
	err := decodeError("list", apiErr)

	var srcErr *Error
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !srcErr.Described {
		t.Error("expected described error")
	}
	if !strings.Contains(srcErr.Error(), "path/not_found/") {
		t.Errorf("expected summary in message, got %q", srcErr.Error())
	}
}

func TestDecodeErrorOpaque(t *testing.T) {
	err := decodeError("download", errors.New("boom"))

	var srcErr *Error
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if srcErr.Described {
		t.Error("expected opaque error")
	}
	if !strings.Contains(srcErr.Error(), "no description provided") {
		t.Errorf("expected fallback text, got %q", srcErr.Error())
	}
}

func TestDownloadTranslatesProviderError(t *testing.T) {
	dlErr := files.DownloadAPIError{}
	dlErr.ErrorSummary = "path/restricted_content/"

	client := &fakeFilesClient{downErr: dlErr}
	s := newWithClient(client, testLogger())

	err := s.Download(context.Background(), File{Path: "/a.mp4"}, filepath.Join(t.TempDir(), "a.mp4"))
	var srcErr *Error
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !srcErr.Described {
		t.Error("expected described error")
	}
}
