// Package main implements the entry point and system initialization for
// roBa Writer.
//
// This package handles:
//   - Command-line flags and firmware path validation
//   - System dependency validation (lsblk required, udisksctl optional)
//   - Firmware staging (plain directory or .zip bundle extraction)
//   - Session logging with rotation
//   - Signal handling for clean staging-directory cleanup
//   - TUI initialization and execution
//
// Flashing does not require root: device mounting goes through udisksctl,
// which serves unprivileged desktop users. When udisksctl is missing the
// tool still runs, but the operator must mount bootloader volumes manually.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hyrodium/roBa-writer/internal/firmware"
	"github.com/hyrodium/roBa-writer/internal/ui"
	"github.com/hyrodium/roBa-writer/internal/volumes"
)

func main() {
	var (
		logfile       string
		expectedLabel string
		arriveTimeout time.Duration
		departTimeout time.Duration
	)

	flag.StringVar(&logfile, "l", "", "Log the session into a file, rotating after 5MB")
	flag.StringVar(&expectedLabel, "label", "", "Only claim bootloader volumes with this label (e.g. XIAO-SENSE)")
	flag.DurationVar(&arriveTimeout, "arrive-timeout", 0, "How long to wait for a bootloader volume per step (default 60s)")
	flag.DurationVar(&departTimeout, "depart-timeout", 0, "How long to wait for the device to reboot per step (default 30s)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	logger, logPath := buildLogger(logfile)

	mounter, err := checkSystemDependencies(logger)
	if err != nil {
		fmt.Printf("❌ Dependency check failed: %v\n", err)
		fmt.Println()
		fmt.Println("💡 Install missing dependencies and try again.")
		os.Exit(1)
	}

	// Stage the firmware directory: a .zip bundle is extracted into a temp
	// directory that must be removed however the process ends.
	extractor := firmware.NewExtractor(flag.Arg(0))
	firmwareDir, err := extractor.Prepare()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer extractor.Cleanup()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		extractor.Cleanup()
		os.Exit(1)
	}()

	set, skipped, err := firmware.Discover(firmwareDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		extractor.Cleanup()
		os.Exit(1)
	}
	for _, name := range skipped {
		logger.Printf("ignoring unrecognized firmware file %s", name)
	}

	logger.Printf("%s starting, firmware dir %s", ui.GetFullVersionString(), firmwareDir)

	m := ui.InitialModel(ui.Config{
		FirmwareSet:   set,
		SkippedFiles:  skipped,
		Logger:        logger,
		LogPath:       logPath,
		ExpectedLabel: expectedLabel,
		ArriveTimeout: arriveTimeout,
		DepartTimeout: departTimeout,
		Mounter:       mounter,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		extractor.Cleanup()
		log.Fatal(err)
	}
}

// usage prints the command synopsis.
func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"Usage: %s [flags] <firmware-dir-or-zip>\n\n"+
			"Flashes roBa split keyboard firmware (.uf2) onto the halves as their\n"+
			"bootloader volumes appear.\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

// buildLogger returns the session logger. With -l the log rotates at 5MB
// (keeping 3 backups); without it the log is discarded.
func buildLogger(logfile string) (*log.Logger, string) {
	if logfile == "" {
		return log.New(io.Discard, "", 0), ""
	}
	writer := &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}
	return log.New(writer, "", log.LstdFlags), logfile
}

// checkSystemDependencies validates the external programs the tool shells
// out to. lsblk is required for device detection; udisksctl is optional -
// without it auto-mounting degrades to manual mounting by the operator.
func checkSystemDependencies(logger *log.Logger) (volumes.Mounter, error) {
	if !checkProgramExists("lsblk") {
		return nil, fmt.Errorf("missing lsblk (drive detection)\n\n" +
			"🔧 Installation commands:\n" +
			"   Debian/Ubuntu: sudo apt install util-linux\n" +
			"   Arch Linux:    sudo pacman -S util-linux")
	}

	udisks := volumes.UdisksMounter{}
	if !udisks.Available() {
		fmt.Println("⚠️  udisksctl not found - bootloader volumes must be mounted manually")
		fmt.Println("   Debian/Ubuntu: sudo apt install udisks2")
		fmt.Println("   Arch Linux:    sudo pacman -S udisks2")
		fmt.Println()
		logger.Printf("udisksctl unavailable, using manual mounter")
		return volumes.ManualMounter{}, nil
	}
	return udisks, nil
}

// checkProgramExists reports whether a program is in PATH.
func checkProgramExists(program string) bool {
	_, err := exec.LookPath(program)
	return err == nil
}
