package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ktlog/auditor/tree/transparency/structs"
)

// Config specifies the file format of the auditor's config file.
type Config struct {
	ServiceAddr string `yaml:"service-addr"` // KT service base URL, e.g. https://kt.example.com
	MetricsAddr string `yaml:"metrics-addr"`

	// Exactly one of DatabaseFile or ObjectStore must be set, selecting the local
	// LevelDB adaptor or the S3-compatible object-store adaptor.
	DatabaseFile string             `yaml:"database-file"`
	ObjectStore  *ObjectStoreConfig `yaml:"object-store"`

	SigningKey string `yaml:"signing-key"` // 32 byte hex-encoded Ed25519 seed
	signingKey ed25519.PrivateKey

	SigKey string `yaml:"sig-key"` // hex-encoded log signing public key
	sigKey [32]byte
	VrfKey string `yaml:"vrf-key"` // hex-encoded log VRF public key
	vrfKey [32]byte

	PollInterval  time.Duration `yaml:"poll-interval"`
	PageSize      uint64        `yaml:"page-size"`
	PrefetchPages int           `yaml:"prefetch-pages"`

	publicConfig *structs.PublicConfig
}

// ObjectStoreConfig configures the S3-compatible persistence adaptor.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	UseSSL    bool   `yaml:"use-ssl"`
}

func parseHexKey(name, s string, out []byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %v", name, err)
	}
	if len(raw) != len(out) {
		return fmt.Errorf("%s is wrong size: wanted=%v, got=%v", name, len(out), len(raw))
	}
	copy(out, raw)
	return nil
}

// ReadConfig loads and validates a Config from filename.
func ReadConfig(filename string) (*Config, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	if parsed.ServiceAddr == "" {
		return nil, fmt.Errorf("field not provided: service-addr")
	} else if parsed.SigningKey == "" {
		return nil, fmt.Errorf("field not provided: signing-key")
	} else if parsed.SigKey == "" {
		return nil, fmt.Errorf("field not provided: sig-key")
	} else if parsed.VrfKey == "" {
		return nil, fmt.Errorf("field not provided: vrf-key")
	}
	if (parsed.DatabaseFile == "") == (parsed.ObjectStore == nil) {
		return nil, fmt.Errorf("exactly one of database-file or object-store must be set")
	}
	if parsed.PageSize == 0 {
		parsed.PageSize = 1000
	}
	if parsed.PollInterval == 0 {
		parsed.PollInterval = 30 * time.Second
	}
	if parsed.PrefetchPages == 0 {
		parsed.PrefetchPages = 4
	}

	seed, err := hex.DecodeString(parsed.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %v", err)
	} else if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key is wrong size: wanted=%v, got=%v", ed25519.SeedSize, len(seed))
	}
	parsed.signingKey = ed25519.NewKeyFromSeed(seed)

	if err := parseHexKey("sig-key", parsed.SigKey, parsed.sigKey[:]); err != nil {
		return nil, err
	}
	if err := parseHexKey("vrf-key", parsed.VrfKey, parsed.vrfKey[:]); err != nil {
		return nil, err
	}

	var auditorKey [32]byte
	copy(auditorKey[:], parsed.signingKey.Public().(ed25519.PublicKey))
	parsed.publicConfig = &structs.PublicConfig{
		Mode:       structs.ThirdPartyAuditing,
		SigKey:     parsed.sigKey,
		VrfKey:     parsed.vrfKey,
		AuditorKey: auditorKey,
	}

	return &parsed, nil
}
