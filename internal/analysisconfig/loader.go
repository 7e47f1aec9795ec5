package analysisconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/config"
)

// Load reads a YAML profile over Default() and returns the params with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Params, []byte, error) {
	return loadOver(path, Default())
}

// Resolve builds the run parameters for cfg: environment defaults, then the
// profile named by ANALYTICS_PARAMS_FILE when set
func Resolve(cfg *config.Config) (*Params, error) {
	base := FromConfig(cfg)
	if cfg == nil || cfg.Analytics.ParamsFile == "" {
		if err := Validate(&base); err != nil {
			return nil, err
		}
		return &base, nil
	}

	p, _, err := loadOver(cfg.Analytics.ParamsFile, base)
	return p, err
}

func loadOver(path string, base Params) (*Params, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read params %s: %w", path, err)
	}

	p, err := Decode(data, base)
	if err != nil {
		return nil, data, fmt.Errorf("params %s: %w", path, err)
	}
	return p, data, nil
}

// Decode overlays YAML onto base; fields absent from data keep base values.
// An empty document yields base unchanged.
func Decode(data []byte, base Params) (*Params, error) {
	p := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Hash generates SHA256 hash from Params (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(p *Params) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
