package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sigbridge/lorarx"
	"github.com/sigbridge/lorarx/internal/packetdb"
	"github.com/sigbridge/lorarx/internal/sysprobe"
)

var githash = "githash not computed"
var gitdate = "git date not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	// Create directory <path>, if needed
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		err2 := os.MkdirAll(dir, 0775)
		if err2 != nil {
			return "", err2
		}
	}

	// Create an empty file path/filename, if it doesn't exist.
	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix.
func setupViper() error {
	HOME, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding User Home Dir: %s\n", err)
	}
	dotLorarx := filepath.Join(HOME, ".lorarx")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotLorarx, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/lorarx"))
	viper.AddConfigPath(dotLorarx)
	viper.AddConfigPath(".")
	err = viper.ReadInConfig() // Find and read the config file
	if err != nil {            // Handle errors reading the config file
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		msg := fmt.Sprintf("Could not open log file '%s'", pfname)
		panic(msg)
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	lorarx.Build.Date = buildDate
	lorarx.Build.Githash = githash
	lorarx.Build.Gitdate = gitdate
	lorarx.Build.Summary = fmt.Sprintf("lorarx version %s (git commit %s of %s)",
		lorarx.Build.Version, githash, gitdate)
	if host, err := os.Hostname(); err == nil {
		lorarx.Build.Host = host
	} else {
		lorarx.Build.Host = "host not detected"
	}

	printVersion := flag.Bool("version", false, "print version and quit")
	pingDB := flag.Bool("pingdb", false, "check the packet database connection and quit")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is lorarx version %s\n", lorarx.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		os.Exit(0)
	}
	if *pingDB {
		if err := packetdb.PingServer(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// All banners and lifecycle output go to stderr: stdout carries nothing
	// but decoded messages.
	fmt.Fprintf(os.Stderr, "=== LoRa Receiver STARTING (lorarx %s, commit %s) ===\n",
		lorarx.Build.Version, githash)

	// Start logging problems and updates to 2 rotating log files.
	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".lorarx", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	lorarx.ProblemLogger = startLogger(problemname)
	lorarx.UpdateLogger = startLogger(logname)
	fmt.Fprintf(os.Stderr, "Logging problems to %s\n", problemname)
	fmt.Fprintf(os.Stderr, "Logging updates  to %s\n", logname)

	// Find config file, creating it if needed, and read it.
	if err := setupViper(); err != nil {
		panic(err)
	}
	cfg, err := lorarx.LoadConfig()
	if err != nil {
		panic(err)
	}

	lorarx.RunID = ulid.Make().String()
	lorarx.UpdateLogger.Printf("lorarx run %s starting: %s", lorarx.RunID, cfg.LoRa.Summary())
	fmt.Fprintf(os.Stderr, "%s\n", cfg.LoRa.Summary())
	if cfg.Verbose {
		lorarx.UpdateLogger.Printf("effective configuration:\n%s", spew.Sdump(cfg))
	}

	// Warn when the kernel's pipe capacity is small for the configured
	// sample rate; a starved stdin pipe shows up as mysterious sample drops.
	sysprobe.CheckPipeCapacity(cfg.LoRa.SampleRate, lorarx.ProblemLogger)

	abort := make(chan struct{})
	go lorarx.RunClientUpdater(lorarx.Ports.Status, abort)

	db := packetdb.DummyConnection()
	if cfg.DBLog {
		activity := &packetdb.ReceiverActivityMessage{
			ID:        lorarx.RunID,
			Hostname:  lorarx.Build.Host,
			Version:   lorarx.Build.Version,
			GoVersion: runtime.Version(),
			CPUs:      runtime.NumCPU(),
			Start:     lorarx.StartTime,
		}
		db = packetdb.StartConnection(activity, abort)
	}

	source := lorarx.NewStdinSource(os.Stdin, cfg.ChunkSamples, cfg.ReportInterval)
	pipeline, err := lorarx.NewPipeline(cfg, source, lorarx.ExecEngineFactory(cfg.DecoderCommand), os.Stdout)
	if err != nil {
		// Construction-time configuration errors are the one fatal class.
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", err)
		lorarx.ProblemLogger.Printf("FATAL: %s", err)
		os.Exit(1)
	}
	pipeline.Sink().SetDB(db)

	if err := pipeline.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "=== Waiting for LoRa packets... ===")

	// Termination: end-of-stream, or an external signal.
	catcher := make(chan os.Signal, 1)
	signal.Notify(catcher, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-catcher
		lorarx.UpdateLogger.Printf("caught signal %v; shutting down", sig)
		pipeline.Stop()
	}()

	pipeline.Wait()
	close(abort)
	fmt.Fprintln(os.Stderr, "=== LoRa Receiver STOPPED ===")
}
