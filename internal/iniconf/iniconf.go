// Package iniconf loads the demo applications' configuration from an INI
// file using gopkg.in/ini.v1, the config-file library the teacher's
// monorepo carries by way of nabbar-golib (present in its go.mod alongside
// the GORM/redis/kvdriver stack this module's internal/luxsql and
// internal/luxkv packages are grounded on). It deliberately does not
// re-implement original_source/LuxUtils/LuxINI.hpp's lazy-write,
// comment-preserving parser: spec.md §1 calls the INI reader out of scope
// for careful design, and gopkg.in/ini.v1 already covers the demo apps'
// read-only needs.
package iniconf

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds everything the demo binaries (cmd/echod, cmd/httpdemo) need
// to start: listen address, external-store DSNs, and log directory/roll
// settings, mirroring the sections original_source/app/http's Application
// constructor takes as plain arguments (listen address, MySQL user/passwd/
// dbName) plus the Redis and logging knobs the rest of this module adds.
type Config struct {
	Server ServerConfig
	MySQL  MySQLConfig
	Redis  RedisConfig
	Log    LogConfig
}

// ServerConfig is the [server] section.
type ServerConfig struct {
	ListenAddr string
	Name       string
	NumThreads int
	ReusePort  bool
}

// MySQLConfig is the [mysql] section.
type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig is the [redis] section.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig is the [log] section.
type LogConfig struct {
	Dir           string
	BaseName      string
	RollSize      int64
	FlushInterval time.Duration
}

// Default returns the configuration used when no INI file is supplied,
// matching the addresses spec.md's S1/S2 scenarios use.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:5836",
			Name:       "lux",
			NumThreads: 0,
			ReusePort:  false,
		},
		MySQL: MySQLConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Log: LogConfig{
			Dir:           ".",
			BaseName:      "lux",
			RollSize:      1 << 30,
			FlushInterval: 3 * time.Second,
		},
	}
}

// Load reads path with gopkg.in/ini.v1, starting from Default() and
// overwriting only the keys present in the file, so a partial INI file
// (e.g. just [server]) is valid.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("iniconf: load %q: %w", path, err)
	}

	if s := f.Section("server"); s != nil {
		cfg.Server.ListenAddr = s.Key("listen_addr").MustString(cfg.Server.ListenAddr)
		cfg.Server.Name = s.Key("name").MustString(cfg.Server.Name)
		cfg.Server.NumThreads = s.Key("num_threads").MustInt(cfg.Server.NumThreads)
		cfg.Server.ReusePort = s.Key("reuse_port").MustBool(cfg.Server.ReusePort)
	}
	if s := f.Section("mysql"); s != nil {
		cfg.MySQL.DSN = s.Key("dsn").MustString(cfg.MySQL.DSN)
		cfg.MySQL.MaxOpenConns = s.Key("max_open_conns").MustInt(cfg.MySQL.MaxOpenConns)
		cfg.MySQL.MaxIdleConns = s.Key("max_idle_conns").MustInt(cfg.MySQL.MaxIdleConns)
	}
	if s := f.Section("redis"); s != nil {
		cfg.Redis.Addr = s.Key("addr").MustString(cfg.Redis.Addr)
		cfg.Redis.Password = s.Key("password").MustString(cfg.Redis.Password)
		cfg.Redis.DB = s.Key("db").MustInt(cfg.Redis.DB)
	}
	if s := f.Section("log"); s != nil {
		cfg.Log.Dir = s.Key("dir").MustString(cfg.Log.Dir)
		cfg.Log.BaseName = s.Key("basename").MustString(cfg.Log.BaseName)
		cfg.Log.RollSize = s.Key("roll_size").MustInt64(cfg.Log.RollSize)
		seconds := s.Key("flush_interval_seconds").MustInt(int(cfg.Log.FlushInterval / time.Second))
		cfg.Log.FlushInterval = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}
