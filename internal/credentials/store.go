package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore persists the credential record as a markdown file with YAML
// frontmatter, so it stays readable both by humans and by the commands.
// The file holds bearer secrets and is written with owner-only permissions.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the credentials file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and parses the credential record. Returns ErrNotConfigured
// when the file does not exist.
func (s *FileStore) Load() (*Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	frontmatter, err := extractFrontmatter(string(raw))
	if err != nil {
		return nil, err
	}

	var record Record
	if err := yaml.Unmarshal([]byte(frontmatter), &record); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if record.ClientID == "" || record.ClientSecret == "" || record.AccessToken == "" {
		return nil, ErrNotConfigured
	}

	return &record, nil
}

// Save writes the full record, replacing any prior one. The write goes to a
// temporary file in the same directory followed by a rename, so a crash
// mid-write never truncates the previous record.
func (s *FileStore) Save(record *Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	frontmatter, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary credentials file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set credentials file permissions: %w", err)
	}
	if _, err := tmp.WriteString(renderFile(string(frontmatter), record)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func extractFrontmatter(content string) (string, error) {
	if !strings.HasPrefix(content, "---") {
		return "", fmt.Errorf("invalid credentials file: missing frontmatter")
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid credentials file: unterminated frontmatter")
	}
	return parts[1], nil
}

func renderFile(frontmatter string, record *Record) string {
	expires := time.Unix(record.ExpiresAt, 0).Format("2006-01-02 15:04:05")
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString(frontmatter)
	b.WriteString("---\n\n")
	b.WriteString("# xpost credentials\n\n")
	fmt.Fprintf(&b, "Authenticated as **%s** (@%s, ID: %s).\n\n",
		record.DisplayName, record.Username, record.UserID)
	fmt.Fprintf(&b, "Access token expires at: %s\n\n", expires)
	b.WriteString("Access tokens expire every 2 hours and are refreshed automatically.\n")
	b.WriteString("Refresh tokens last about 6 months. Re-run setup if refreshing fails.\n")
	return b.String()
}
