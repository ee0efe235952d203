package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/common"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"

	"github.com/mediaops/adpipe/internal/pattern"
)

// Dropbox lists and downloads files from a Dropbox account, scoped to the
// account's root namespace so that team space folders are visible.
type Dropbox struct {
	client files.Client
	logger *slog.Logger
}

// New creates a Dropbox source for the given access token. It resolves the
// account's root namespace up front; all subsequent calls address paths
// relative to that namespace.
func New(token string, logger *slog.Logger) (*Dropbox, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := dropbox.Config{Token: token, LogLevel: dropbox.LogOff}

	account, err := users.New(cfg).GetCurrentAccount()
	if err != nil {
		return nil, decodeError("authenticate", err)
	}

	nsID := rootNamespaceID(account.RootInfo)
	if nsID != "" {
		header := fmt.Sprintf(`{".tag": "namespace_id", "namespace_id": %q}`, nsID)
		cfg.HeaderGenerator = func(hostType string, namespace string, route string) map[string]string {
			return map[string]string{"Dropbox-API-Path-Root": header}
		}
		logger.Debug("source scoped to root namespace", "namespace_id", nsID)
	}

	return &Dropbox{client: files.New(cfg), logger: logger}, nil
}

// newWithClient is the test seam.
func newWithClient(client files.Client, logger *slog.Logger) *Dropbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dropbox{client: client, logger: logger}
}

// rootNamespaceID extracts the root namespace id from whichever concrete
// root info the account carries.
func rootNamespaceID(info common.IsRootInfo) string {
	switch ri := info.(type) {
	case *common.UserRootInfo:
		return ri.RootNamespaceId
	case *common.TeamRootInfo:
		return ri.RootNamespaceId
	default:
		return ""
	}
}

// Walk enumerates every file under folder recursively, following the
// provider's cursor pagination, and calls fn once per file. The sequence is
// lazy and non-restartable; fn returning an error stops the walk.
func (s *Dropbox) Walk(ctx context.Context, folder string, fn func(File) error) error {
	arg := files.NewListFolderArg(folder)
	arg.Recursive = true

	res, err := s.client.ListFolder(arg)
	if err != nil {
		return decodeError("list", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, entry := range res.Entries {
			fm, ok := entry.(*files.FileMetadata)
			if !ok {
				continue
			}
			if err := fn(toFile(fm)); err != nil {
				return err
			}
		}
		if !res.HasMore {
			return nil
		}
		res, err = s.client.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return decodeError("list continue", err)
		}
	}
}

// ListAll materializes Walk into a slice.
func (s *Dropbox) ListAll(ctx context.Context, folder string) ([]File, error) {
	var out []File
	err := s.Walk(ctx, folder, func(f File) error {
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobFolders lists the immediate children of root and keeps folders
// whose name carries a job number in [min, max).
func (s *Dropbox) ListJobFolders(ctx context.Context, root string, min, max int) ([]Job, error) {
	arg := files.NewListFolderArg(root)

	res, err := s.client.ListFolder(arg)
	if err != nil {
		return nil, decodeError("list job folders", err)
	}

	var jobs []Job
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, entry := range res.Entries {
			folder, ok := entry.(*files.FolderMetadata)
			if !ok {
				continue
			}
			n, ok := pattern.JobNumber(folder.Name)
			if !ok || n < min || n >= max {
				continue
			}
			jobs = append(jobs, Job{Number: n, Name: folder.Name, Path: folder.PathDisplay})
		}
		if !res.HasMore {
			return jobs, nil
		}
		res, err = s.client.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, decodeError("list job folders continue", err)
		}
	}
}

// Download streams the file's content to dest, overwriting any existing
// file. Parent directories are created as needed.
func (s *Dropbox) Download(ctx context.Context, file File, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, content, err := s.client.Download(files.NewDownloadArg(file.Path))
	if err != nil {
		return decodeError("download", err)
	}
	defer content.Close()

	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &Error{Op: "download", Message: fmt.Sprintf("create destination directory: %v", err)}
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return &Error{Op: "download", Message: fmt.Sprintf("create destination file: %v", err)}
	}

	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return &Error{Op: "download", Message: fmt.Sprintf("write destination file: %v", err)}
	}
	if err := out.Close(); err != nil {
		return &Error{Op: "download", Message: fmt.Sprintf("close destination file: %v", err)}
	}

	s.logger.Debug("downloaded file", "path", file.Path, "dest", dest)
	return nil
}

func toFile(fm *files.FileMetadata) File {
	f := File{Name: fm.Name, Path: fm.PathDisplay}
	if n, ok := pattern.JobNumberFromPath(fm.PathDisplay); ok {
		f.JobNumber = n
	}
	return f
}

// decodeError translates a provider error into *Error, preferring the
// structured error summary when one is present.
func decodeError(op string, err error) error {
	var (
		listErr     files.ListFolderAPIError
		continueErr files.ListFolderContinueAPIError
		downloadErr files.DownloadAPIError
		rateErr     auth.RateLimitAPIError
		apiErr      dropbox.APIError
	)
	switch {
	case errors.As(err, &listErr):
		return &Error{Op: op, Message: listErr.ErrorSummary, Described: true}
	case errors.As(err, &continueErr):
		return &Error{Op: op, Message: continueErr.ErrorSummary, Described: true}
	case errors.As(err, &downloadErr):
		return &Error{Op: op, Message: downloadErr.ErrorSummary, Described: true}
	case errors.As(err, &rateErr):
		return &Error{Op: op, Message: rateErr.ErrorSummary, Described: true}
	case errors.As(err, &apiErr):
		return &Error{Op: op, Message: apiErr.ErrorSummary, Described: true}
	default:
		return &Error{Op: op, Message: fmt.Sprintf("no description provided: %v", err)}
	}
}
