// Package identity resolves the per-installation player id.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileName 은 preferences 디렉토리 아래에 저장되는 유일한 파일.
const FileName = "player_id.txt"

// DirFunc 는 preferences 루트 디렉토리를 돌려준다.
type DirFunc func() (string, error)

// XDGConfigHome 은 OS 별 사용자 설정 디렉토리 (Linux: ~/.config, macOS: ~/Library/Application Support, Windows: %LOCALAPPDATA%).
func XDGConfigHome() (string, error) {
	if xdg.ConfigHome == "" {
		return "", errors.New("config home is not resolvable")
	}
	return xdg.ConfigHome, nil
}

// Store
// ------------------------------------------------------------
// <dir>/<product>/player_id.txt 에 UUID 한 줄을 평문으로 저장한다.
//
//   - 파일 있음: 그대로 읽어서 사용
//   - 파일 없음: 새 UUID 생성 → 디렉토리 생성 → 저장
//   - 디렉토리 해석 / 읽기 / 쓰기 실패: 프로세스 수명 동안 유지되는 임시 UUID
//
// GetOrCreatePlayerID 는 절대 실패하지 않는다.
type Store struct {
	dir     DirFunc
	product string
	log     zerolog.Logger

	mu   sync.Mutex
	memo string
}

func NewStore(dir DirFunc, product string, log zerolog.Logger) *Store {
	if dir == nil {
		dir = XDGConfigHome
	}
	return &Store{dir: dir, product: product, log: log}
}

// Path 는 player id 파일 경로.
func (s *Store) Path() (string, error) {
	root, err := s.dir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(root) == "" {
		return "", errors.New("empty preferences directory")
	}
	product := sanitize(s.product)
	if product == "" {
		return "", errors.New("empty product name")
	}
	return filepath.Join(root, product, FileName), nil
}

func (s *Store) GetOrCreatePlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memo != "" {
		return s.memo
	}

	id, err := s.resolve()
	if err != nil {
		id = uuid.NewString()
		s.log.Warn().Err(err).Msg("player id not persisted, using ephemeral id")
	}
	s.memo = id
	return id
}

func (s *Store) resolve() (string, error) {
	path, err := s.Path()
	if err != nil {
		return "", fmt.Errorf("resolve preferences dir: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
		// 빈 파일은 새로 만든다.
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	s.log.Debug().Str("path", path).Msg("created player id")
	return id, nil
}

// sanitize 는 product 이름을 디렉토리 이름으로 쓸 수 있게 만든다.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
