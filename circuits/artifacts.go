package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vocdoni/zktally/config"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/types"
)

// CheckHashes determines if the hashes of the artifacts are checked when they
// are loaded or downloaded. Setting ZKTALLY_CHECK_HASHES to false or 0
// disables it.
var CheckHashes = true

// BaseDir is the artifact cache. Defaults to ZKTALLY_ARTIFACTS_DIR or a
// directory under the user home.
var BaseDir string

// ErrArtifactNotFound is returned when an artifact is neither cached nor
// downloadable.
var ErrArtifactNotFound = errors.New("artifact not found")

func init() {
	if checkHashes := os.Getenv(config.EnvCheckHashes); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv(config.EnvArtifactsDir); dir != "" {
		BaseDir = dir
	} else {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			log.Warnf("unable to access user home directory, using temporary directory: %v", err)
			BaseDir = filepath.Join(os.TempDir(), "zktally-artifacts")
		} else {
			BaseDir = filepath.Join(home, config.DefaultArtifactsDir)
		}
	}
}

// Artifact is a content addressed blob: a compiled constraint system, a
// proving key or a verifying key. Content is identified by its sha256 Hash
// and lives in BaseDir, optionally mirrored at RemoteURL.
type Artifact struct {
	RemoteURL string
	Hash      types.HexBytes
	Content   types.HexBytes
}

// NewArtifact returns an artifact for content with its hash computed.
func NewArtifact(content []byte) *Artifact {
	h := sha256.Sum256(content)
	return &Artifact{Hash: h[:], Content: content}
}

// Load fills the content from the local cache, downloading it first when it
// is missing and a RemoteURL is set. Loaded content must match Hash.
func (k *Artifact) Load(ctx context.Context) error {
	if len(k.Content) != 0 {
		return nil
	}
	if len(k.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := load(k.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		if k.RemoteURL == "" {
			return fmt.Errorf("%w: %x", ErrArtifactNotFound, k.Hash)
		}
		if err := k.Download(ctx); err != nil {
			return err
		}
		if content, err = load(k.Hash); err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("%w after download: %x", ErrArtifactNotFound, k.Hash)
		}
	}
	k.Content = content
	return nil
}

// Store writes the content into the cache under its hash. The write goes
// through a temporary file so a crash never leaves a truncated artifact.
func (k *Artifact) Store() error {
	if len(k.Content) == 0 {
		return fmt.Errorf("empty artifact")
	}
	h := sha256.Sum256(k.Content)
	if len(k.Hash) != 0 && !bytes.Equal(k.Hash, h[:]) {
		return fmt.Errorf("hash mismatch: expected %x, got %x", k.Hash, h[:])
	}
	k.Hash = h[:]
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(k.Hash))
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, k.Content, 0o644); err != nil {
		return fmt.Errorf("error writing artifact: %w", err)
	}
	return os.Rename(tmp, path)
}

// ArtifactURL returns where a mirror serving artifacts at baseURL keeps the
// artifact with hash: the hex hash appended to the base path.
func ArtifactURL(baseURL string, hash []byte) (string, error) {
	return url.JoinPath(baseURL, hex.EncodeToString(hash))
}

// Download fetches the content from RemoteURL into the cache.
func (k *Artifact) Download(ctx context.Context) error {
	if k.RemoteURL == "" {
		return fmt.Errorf("artifact not loaded and remote url not provided")
	}
	return downloadAndStore(ctx, k.Hash, k.RemoteURL)
}

// CircuitArtifacts groups the three artifacts of a compiled relation.
type CircuitArtifacts struct {
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts creates a new CircuitArtifacts struct with the circuit
// artifacts provided.
func NewCircuitArtifacts(circuit, provingKey, verifyingKey *Artifact) *CircuitArtifacts {
	return &CircuitArtifacts{
		circuitDefinition: circuit,
		provingKey:        provingKey,
		verifyingKey:      verifyingKey,
	}
}

// LoadAll loads the three artifacts, downloading the missing ones.
func (ca *CircuitArtifacts) LoadAll(ctx context.Context) error {
	if err := ca.circuitDefinition.Load(ctx); err != nil {
		return fmt.Errorf("error loading circuit definition: %w", err)
	}
	if err := ca.provingKey.Load(ctx); err != nil {
		return fmt.Errorf("error loading proving key: %w", err)
	}
	if err := ca.verifyingKey.Load(ctx); err != nil {
		return fmt.Errorf("error loading verifying key: %w", err)
	}
	return nil
}

// StoreAll writes the three artifacts into the cache.
func (ca *CircuitArtifacts) StoreAll() error {
	for name, a := range map[string]*Artifact{
		"circuit definition": ca.circuitDefinition,
		"proving key":        ca.provingKey,
		"verifying key":      ca.verifyingKey,
	} {
		if err := a.Store(); err != nil {
			return fmt.Errorf("error storing %s: %w", name, err)
		}
	}
	return nil
}

// CircuitDefinition returns the serialized constraint system, nil if it is
// not loaded.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes {
	return ca.circuitDefinition.Content
}

// ProvingKey returns the serialized proving key, nil if it is not loaded.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes {
	return ca.provingKey.Content
}

// VerifyingKey returns the serialized verifying key, nil if it is not loaded.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes {
	return ca.verifyingKey.Content
}

// Hashes returns the hashes of the circuit definition, proving key and
// verifying key, in that order.
func (ca *CircuitArtifacts) Hashes() [3]types.HexBytes {
	return [3]types.HexBytes{ca.circuitDefinition.Hash, ca.provingKey.Hash, ca.verifyingKey.Hash}
}

func load(hash []byte) ([]byte, error) {
	path := filepath.Join(BaseDir, hex.EncodeToString(hash))
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		fileHash := sha256.Sum256(content)
		if !bytes.Equal(fileHash[:], hash) {
			return nil, fmt.Errorf("hash mismatch for file %s: expected %x, got %x", path, hash, fileHash)
		}
	}
	return content, nil
}

// progressReader wraps an io.Reader and keeps track of the total bytes read.
type progressReader struct {
	reader        io.Reader
	total         int64 // updated atomically
	contentLength int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	atomic.AddInt64(&pr.total, int64(n))
	return n, err
}

// downloadAndStore downloads a file from a URL and stores it in the local
// cache, resuming a previous partial download when possible.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileUrl string) error {
	if _, err := url.Parse(fileUrl); err != nil {
		return fmt.Errorf("error parsing the file URL provided: %w", err)
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(expectedHash))
	partialPath := path + ".partial"

	var startByte int64
	if info, err := os.Stat(partialPath); err == nil {
		startByte = info.Size()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileUrl, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	if startByte > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startByte))
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Warnw("error closing download body", "url", fileUrl, "err", err)
		}
	}()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("error downloading file %s: http status: %d", fileUrl, res.StatusCode)
	}
	resuming := startByte > 0 && res.StatusCode == http.StatusPartialContent
	fileMode := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if resuming {
		fileMode = os.O_APPEND | os.O_WRONLY
	}
	fd, err := os.OpenFile(partialPath, fileMode, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	defer fd.Close()

	hasher := sha256.New()
	if resuming {
		existing, err := os.ReadFile(partialPath)
		if err == nil {
			hasher.Write(existing)
		}
	}
	pr := &progressReader{
		reader:        res.Body,
		contentLength: res.ContentLength + startByte,
	}
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.MultiWriter(fd, hasher), pr)
		done <- err
	}()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for copying := true; copying; {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("error copying data to file: %w", err)
			}
			copying = false
		case <-ticker.C:
			total := atomic.LoadInt64(&pr.total)
			var percentage float64
			if pr.contentLength > 0 {
				percentage = (float64(total) / float64(pr.contentLength)) * 100
			}
			log.Debugw("download artifacts", "url", fileUrl,
				"downloaded", fmt.Sprintf("%.2fMiB", float64(total)/(1024*1024)),
				"progress", fmt.Sprintf("%.2f%%", percentage))
		}
	}
	if CheckHashes {
		if computedHash := hasher.Sum(nil); !bytes.Equal(computedHash, expectedHash) {
			if err := os.Remove(partialPath); err != nil {
				log.Warnw("cannot remove invalid artifact", "path", partialPath, "err", err)
			}
			return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computedHash)
		}
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}
