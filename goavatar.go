package goavatar

import (
	"github.com/goavatar/goavatar/engine/avatarmgr"
	"github.com/goavatar/goavatar/engine/binutil"
	"github.com/goavatar/goavatar/engine/config"
	"github.com/goavatar/goavatar/engine/session"
)

// SetConfigFile sets the config file used by NewSession and Connect
func SetConfigFile(f string) {
	config.SetConfigFile(f)
}

// SetupLogging applies the log settings of the [client] config section, logLevel overrides the configured level
func SetupLogging(component string, logLevel string) {
	cc := config.GetClient()
	if logLevel == "" {
		logLevel = cc.LogLevel
	}
	binutil.SetupGWLog(component, logLevel, cc.LogFile, cc.LogStderr)
}

// SetupHTTPServer serves pprof and expvars on the http_addr of the [client] config section
func SetupHTTPServer() {
	binutil.SetupHTTPServer(config.GetClient().HTTPAddr)
}

// NewSession creates a session from the config file without connecting it
//
// delegate receives avatar added/removed notifications, it can be nil.
func NewSession(delegate avatarmgr.IDirectoryDelegate) *session.Session {
	return session.New(config.Get(), delegate)
}

// Connect creates a session and connects it to the avatar mixer of the config file
//
// The caller runs the returned session with Run.
func Connect(delegate avatarmgr.IDirectoryDelegate) (*session.Session, error) {
	s := NewSession(delegate)
	if _, err := s.Connect(); err != nil {
		return nil, err
	}
	return s, nil
}
