package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"
)

// PoolEndpoint is one stratum server this miner can connect to, either as
// the primary pool or as the failover backup (spec.md §3, §5).
//
// It marshals as a 5-element array ["host", port, "wallet", "password",
// "worker-name"] to stay readable in a hand-edited config file, the same
// array-transport trick the teacher's PoolInfo used for
// [host, port, sub-account].
type PoolEndpoint struct {
	Host     string
	Port     uint16
	Wallet   string
	Password string
	Worker   string
}

func (p *PoolEndpoint) UnmarshalJSON(raw []byte) error {
	var tmp []json.RawMessage
	if err := json.Unmarshal(raw, &tmp); err != nil {
		return err
	}
	if len(tmp) > 0 {
		if err := json.Unmarshal(tmp[0], &p.Host); err != nil {
			return err
		}
	}
	if len(tmp) > 1 {
		if err := json.Unmarshal(tmp[1], &p.Port); err != nil {
			return err
		}
	}
	if len(tmp) > 2 {
		if err := json.Unmarshal(tmp[2], &p.Wallet); err != nil {
			return err
		}
	}
	if len(tmp) > 3 {
		if err := json.Unmarshal(tmp[3], &p.Password); err != nil {
			return err
		}
	}
	if len(tmp) > 4 {
		if err := json.Unmarshal(tmp[4], &p.Worker); err != nil {
			return err
		}
	}
	return nil
}

func (p *PoolEndpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Host, p.Port, p.Wallet, p.Password, p.Worker})
}

// Empty reports whether the endpoint has never been configured, the
// signal Config.Validate uses to decide a backup pool is absent rather
// than misconfigured.
func (p *PoolEndpoint) Empty() bool {
	return p.Host == "" && p.Port == 0
}

func (p *PoolEndpoint) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Seconds is a plain integer number of seconds in the config file that
// unmarshals into a time.Duration via Get(), sparing every config
// consumer its own "* time.Second" at the call site.
type Seconds int

func (s Seconds) Get() time.Duration {
	return time.Duration(s) * time.Second
}

// Advanced holds the tunables a user would only touch to work around an
// unusual pool or network; everything here has a sane default applied by
// Config.applyDefaults.
type Advanced struct {
	MessageQueueSize                 int     `json:"message_queue_size"`
	PoolConnectionDialTimeoutSeconds Seconds `json:"pool_connection_dial_timeout_seconds"`
	PoolConnectionReadTimeoutSeconds Seconds `json:"pool_connection_read_timeout_seconds"`
	TLSSkipCertificateVerify         bool    `json:"tls_skip_certificate_verify"`
	FakeJobNotifyIntervalSeconds     Seconds `json:"fake_job_notify_interval_seconds"`
}

// Config is the miner's full runtime configuration, loaded from a JSON
// file at startup (spec.md §7: missing wallet is a configuration error,
// not a runtime one).
type Config struct {
	Pool       PoolEndpoint `json:"pool"`
	BackupPool PoolEndpoint `json:"backup_pool"`
	PoolUseTLS bool         `json:"pool_use_tls"`

	WorkerNameSuffix string `json:"worker_name_suffix"`

	// DesiredDifficulty is sent via mining.suggest_difficulty during the
	// handshake; zero means let the pool choose (spec.md §4.D).
	DesiredDifficulty float64 `json:"desired_difficulty"`

	NumWorkers int `json:"num_workers"`

	Advanced Advanced `json:"advanced"`

	LogDir string `json:"log_dir"`
}

// LoadFromFile reads and parses a JSON config file, then fills in defaults
// for anything the file left zero-valued.
func (conf *Config) LoadFromFile(file string) error {
	configJSON, err := ioutil.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(configJSON, conf); err != nil {
		return err
	}
	conf.applyDefaults()
	return nil
}

func (conf *Config) applyDefaults() {
	if conf.Advanced.MessageQueueSize == 0 {
		conf.Advanced.MessageQueueSize = SubmissionQueueCapacity
	}
	if conf.Advanced.PoolConnectionDialTimeoutSeconds == 0 {
		conf.Advanced.PoolConnectionDialTimeoutSeconds = Seconds(TCPConnectTimeout / time.Second)
	}
	if conf.Advanced.PoolConnectionReadTimeoutSeconds == 0 {
		conf.Advanced.PoolConnectionReadTimeoutSeconds = Seconds(LineReadTimeout / time.Second)
	}
	if conf.NumWorkers == 0 {
		conf.NumWorkers = -1 // sentinel: caller resolves via runtime.NumCPU()
	}
}

// Validate rejects a configuration that cannot possibly mine, per
// spec.md §7 ("no wallet configured at startup is a configuration error").
func (conf *Config) Validate() error {
	if conf.Pool.Empty() {
		return ErrNoWallet
	}
	if conf.Pool.Wallet == "" {
		return ErrNoWallet
	}
	if err := ValidateWalletAddress(conf.Pool.Wallet); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWallet, err)
	}
	if !conf.BackupPool.Empty() && conf.BackupPool.Wallet == "" {
		conf.BackupPool.Wallet = conf.Pool.Wallet
	}
	return nil
}
