package config

import (
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/pkg/errors"
)

const (
	_DEFAULT_CONFIG_FILE = "goavatar.ini"
	_DEFAULT_LOG_LEVEL   = "debug"
	_DEFAULT_LOG_FILE    = "goavatar.log"
	_DEFAULT_UDP_ADDR    = "127.0.0.1:48000"
	_DEFAULT_KCP_ADDR    = "127.0.0.1:48001"
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	goAvatarConfig *GoAvatarConfig
	configLock     sync.Mutex
)

// ClientConfig defines fields of the [client] section
type ClientConfig struct {
	LogLevel               string
	LogStderr              bool
	LogFile                string
	HTTPAddr               string
	RequestsDomainListData bool
	PublishIntervalMS      int
	FullUpdateRatio        float64
	MaxAvatarDataSize      int
	LoopIntervalMS         int
}

// PublishInterval returns the minimum interval between two avatar data publishes
func (cc *ClientConfig) PublishInterval() time.Duration {
	return time.Duration(cc.PublishIntervalMS) * time.Millisecond
}

// LoopInterval returns the tick interval of the session loop
func (cc *ClientConfig) LoopInterval() time.Duration {
	return time.Duration(cc.LoopIntervalMS) * time.Millisecond
}

// MixerConfig defines fields of the [mixer] section
type MixerConfig struct {
	UDPAddr         string
	KCPAddr         string
	KCPDataShards   int
	KCPParityShards int
}

// DomainConfig defines fields of the [domain] section
type DomainConfig struct {
	MinAvatarHeight float64
	MaxAvatarHeight float64
}

// AvatarConfig defines fields of the [avatar] section
type AvatarConfig struct {
	DisplayName      string
	SkeletonModelURL string
	TargetScale      float64
}

// GoAvatarConfig defines the total goavatar config file structure
type GoAvatarConfig struct {
	Client ClientConfig
	Mixer  MixerConfig
	Domain DomainConfig
	Avatar AvatarConfig
}

// SetConfigFile sets the config file path (goavatar.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of goavatar.ini
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total goavatar config, it panics if the config file is invalid
func Get() *GoAvatarConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if goAvatarConfig == nil {
		gwlog.Infof("Using config file: %s", configFilePath)
		cfg, err := LoadFile(configFilePath)
		checkConfigError(err)
		goAvatarConfig = cfg
	}
	return goAvatarConfig
}

// Reload forces the config to be read again
func Reload() *GoAvatarConfig {
	configLock.Lock()
	goAvatarConfig = nil
	configLock.Unlock()

	return Get()
}

// GetClient returns the client config
func GetClient() *ClientConfig {
	return &Get().Client
}

// GetMixer returns the mixer config
func GetMixer() *MixerConfig {
	return &Get().Mixer
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

// LoadFile reads a goavatar config file, source can be a file name or []byte content
func LoadFile(source interface{}) (*GoAvatarConfig, error) {
	iniFile, err := ini.Load(source)
	if err != nil {
		return nil, errors.Wrap(err, "load ini")
	}

	var config GoAvatarConfig
	setDefaults(&config)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		switch secName {
		case "default":
			if len(sec.Keys()) > 0 {
				err = errors.Errorf("keys outside of any section: %s", strings.Join(sec.KeyStrings(), ","))
			}
		case "client":
			err = _readClientConfig(sec, &config.Client)
		case "mixer":
			err = _readMixerConfig(sec, &config.Mixer)
		case "domain":
			err = _readDomainConfig(sec, &config.Domain)
		case "avatar":
			err = _readAvatarConfig(sec, &config.Avatar)
		default:
			gwlog.Errorf("unknown section: %s", secName)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(config *GoAvatarConfig) {
	cc := &config.Client
	cc.LogLevel = _DEFAULT_LOG_LEVEL
	cc.LogStderr = true
	cc.LogFile = _DEFAULT_LOG_FILE
	cc.PublishIntervalMS = int(consts.MIN_TIME_BETWEEN_AVATAR_DATA_SENDS / time.Millisecond)
	cc.FullUpdateRatio = consts.AVATAR_SEND_FULL_UPDATE_RATIO
	cc.MaxAvatarDataSize = consts.MAX_AVATAR_DATA_SIZE
	cc.LoopIntervalMS = int(consts.SESSION_LOOP_INTERVAL / time.Millisecond)

	mc := &config.Mixer
	mc.UDPAddr = _DEFAULT_UDP_ADDR
	mc.KCPAddr = _DEFAULT_KCP_ADDR
	mc.KCPDataShards = 10
	mc.KCPParityShards = 3

	config.Domain.MinAvatarHeight = consts.MIN_AVATAR_HEIGHT
	config.Domain.MaxAvatarHeight = consts.MAX_AVATAR_HEIGHT

	config.Avatar.TargetScale = 1.0
}

func _readClientConfig(sec *ini.Section, cc *ClientConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "log_level" {
			cc.LogLevel = key.MustString(cc.LogLevel)
		} else if name == "log_stderr" {
			cc.LogStderr = key.MustBool(cc.LogStderr)
		} else if name == "log_file" {
			cc.LogFile = key.MustString(cc.LogFile)
		} else if name == "http_addr" {
			cc.HTTPAddr = key.MustString(cc.HTTPAddr)
		} else if name == "requests_domain_list_data" {
			cc.RequestsDomainListData = key.MustBool(cc.RequestsDomainListData)
		} else if name == "publish_interval_ms" {
			cc.PublishIntervalMS = key.MustInt(cc.PublishIntervalMS)
		} else if name == "full_update_ratio" {
			cc.FullUpdateRatio = key.MustFloat64(cc.FullUpdateRatio)
		} else if name == "max_avatar_data_size" {
			cc.MaxAvatarDataSize = key.MustInt(cc.MaxAvatarDataSize)
		} else if name == "loop_interval_ms" {
			cc.LoopIntervalMS = key.MustInt(cc.LoopIntervalMS)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func _readMixerConfig(sec *ini.Section, mc *MixerConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "udp_addr" {
			mc.UDPAddr = key.String()
		} else if name == "kcp_addr" {
			mc.KCPAddr = key.String()
		} else if name == "kcp_data_shards" {
			mc.KCPDataShards = key.MustInt(mc.KCPDataShards)
		} else if name == "kcp_parity_shards" {
			mc.KCPParityShards = key.MustInt(mc.KCPParityShards)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func _readDomainConfig(sec *ini.Section, dc *DomainConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "min_avatar_height" {
			dc.MinAvatarHeight = key.MustFloat64(dc.MinAvatarHeight)
		} else if name == "max_avatar_height" {
			dc.MaxAvatarHeight = key.MustFloat64(dc.MaxAvatarHeight)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func _readAvatarConfig(sec *ini.Section, ac *AvatarConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "display_name" {
			ac.DisplayName = key.MustString(ac.DisplayName)
		} else if name == "skeleton_model_url" {
			ac.SkeletonModelURL = key.MustString(ac.SkeletonModelURL)
		} else if name == "target_scale" {
			ac.TargetScale = key.MustFloat64(ac.TargetScale)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func checkConfigError(err error) {
	if err != nil {
		gwlog.Panicf("read config error: %v", err)
	}
}

func validateConfig(config *GoAvatarConfig) error {
	cc := &config.Client
	if cc.PublishIntervalMS < 0 {
		return errors.Errorf("publish_interval_ms must not be negative: %d", cc.PublishIntervalMS)
	}
	if cc.LoopIntervalMS <= 0 {
		return errors.Errorf("loop_interval_ms must be positive: %d", cc.LoopIntervalMS)
	}
	if cc.FullUpdateRatio < 0 || cc.FullUpdateRatio > 1 {
		return errors.Errorf("full_update_ratio must be in [0, 1]: %v", cc.FullUpdateRatio)
	}
	if cc.MaxAvatarDataSize <= 0 || cc.MaxAvatarDataSize > consts.UDP_MAX_PACKET_PAYLOAD_SIZE {
		return errors.Errorf("max_avatar_data_size must be in (0, %d]: %d", consts.UDP_MAX_PACKET_PAYLOAD_SIZE, cc.MaxAvatarDataSize)
	}

	if config.Mixer.UDPAddr == "" && config.Mixer.KCPAddr == "" {
		return errors.Errorf("neither udp_addr nor kcp_addr is set in mixer config")
	}

	dc := &config.Domain
	if dc.MinAvatarHeight > dc.MaxAvatarHeight {
		return errors.Errorf("min_avatar_height %v is above max_avatar_height %v", dc.MinAvatarHeight, dc.MaxAvatarHeight)
	}
	return nil
}
