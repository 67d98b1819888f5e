package common

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const (
	// size of a data page in byte
	PageSize = 4096
	// size of the fixed page header (page id, free offset, prev id, next id)
	PageHeaderSize = 16
	// size of the caller-defined region after the header
	PagePayloadSize = PageSize - PageHeaderSize
	// first id handed out by a fresh database
	FirstPageID = 1
	// size of buffer pool when nothing is configured
	DefaultBufferPoolCapacity = 64
	DefaultEvictionPolicy     = "lru"

	DataFileName = "samehada.db"
	MetaFileName = "samehada.meta"
	LogFileName  = "samehada.log"
)

// Config is the ini backed configuration of a database directory.
//
//	[storage]
//	dir = ./data
//
//	[buffer_pool]
//	capacity = 64
//	policy   = lru
//
//	[log]
//	level  = info
//	format = console
//	output = stderr
type Config struct {
	Dir                string
	BufferPoolCapacity int
	EvictionPolicy     string
	LogLevel           string
	LogFormat          string
	LogOutput          string
}

func DefaultConfig() *Config {
	return &Config{
		Dir:                "data",
		BufferPoolCapacity: DefaultBufferPoolCapacity,
		EvictionPolicy:     DefaultEvictionPolicy,
		LogLevel:           "info",
		LogFormat:          "console",
		LogOutput:          "stderr",
	}
}

// LoadConfig reads an ini file. Keys that are absent keep their defaults.
func LoadConfig(path string) (*Config, error) {
	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}

	cfg := DefaultConfig()
	cfg.parseStorageCfg(iniFile.Section("storage"))
	cfg.parseBufferPoolCfg(iniFile.Section("buffer_pool"))
	cfg.parseLogCfg(iniFile.Section("log"))

	if cfg.BufferPoolCapacity <= 0 {
		return nil, errors.Errorf("buffer_pool.capacity must be positive, got %d", cfg.BufferPoolCapacity)
	}
	return cfg, nil
}

func (cfg *Config) parseStorageCfg(section *ini.Section) {
	cfg.Dir = section.Key("dir").MustString(cfg.Dir)
}

func (cfg *Config) parseBufferPoolCfg(section *ini.Section) {
	cfg.BufferPoolCapacity = section.Key("capacity").MustInt(cfg.BufferPoolCapacity)
	cfg.EvictionPolicy = section.Key("policy").MustString(cfg.EvictionPolicy)
}

func (cfg *Config) parseLogCfg(section *ini.Section) {
	cfg.LogLevel = section.Key("level").MustString(cfg.LogLevel)
	cfg.LogFormat = section.Key("format").MustString(cfg.LogFormat)
	cfg.LogOutput = section.Key("output").MustString(cfg.LogOutput)
}
