package binutil

import (
	"net/http"
	// register pprof handlers on the default mux
	_ "net/http/pprof"

	"github.com/goavatar/goavatar/engine/gwlog"
)

// SetupHTTPServer starts the HTTP server for go tool pprof and expvar
func SetupHTTPServer(addr string) {
	if addr == "" {
		gwlog.Infof("pprof server not enabled")
		return
	}

	gwlog.Infof("http server listening on %s", addr)
	gwlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", addr)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", addr)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", addr)
	gwlog.Infof("expvars http://%s/debug/vars", addr)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			gwlog.Errorf("http server on %s stopped: %v", addr, err)
		}
	}()
}

// SetupGWLog setup the goavatar log system
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.ParseLevel(logLevel))

	outputs := make([]string, 0, 2)
	if logFile != "" {
		outputs = append(outputs, logFile)
	}
	if logStderr {
		outputs = append(outputs, "stderr")
	}
	if len(outputs) > 0 {
		gwlog.SetOutput(outputs)
	}
}
