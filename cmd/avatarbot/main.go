package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goavatar/goavatar"
	"github.com/goavatar/goavatar/engine/binutil"
	"github.com/goavatar/goavatar/engine/gwlog"
)

const (
	_PROCESS_STATS_INTERVAL = time.Second * 5
)

var (
	configFile      string
	logLevel        string
	runInDaemonMode bool
	duration        time.Duration
	quiet           bool
)

func parseArgs() {
	flag.StringVar(&configFile, "configfile", "", "set config file path")
	flag.StringVar(&logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&runInDaemonMode, "d", false, "run in daemon mode")
	flag.DurationVar(&duration, "duration", 0, "stop after duration, run until interrupted if 0")
	flag.BoolVar(&quiet, "quiet", false, "do not log avatars entering and leaving")
	flag.Parse()
}

func main() {
	rand.Seed(time.Now().UnixNano())
	parseArgs()
	if runInDaemonMode {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}
	if configFile != "" {
		goavatar.SetConfigFile(configFile)
	}
	goavatar.SetupLogging("avatarbot", logLevel)
	goavatar.SetupHTTPServer()

	bot := newAvatarBot(rand.New(rand.NewSource(time.Now().UnixNano())))
	s, err := goavatar.Connect(bot)
	if err != nil {
		gwlog.Fatalf("connect failed: %v", err)
	}
	bot.attach(s)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	binutil.StartProcessStats(ctx, _PROCESS_STATS_INTERVAL)
	gwlog.Infof("%s is running ...", bot)
	s.Run(ctx)
	gwlog.Infof("%s stopped, published %d updates", bot, s.LocalAvatar().DataSequence())
}
