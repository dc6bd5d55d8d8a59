// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

const (
	// DefaultPort is where the free port search begins.
	DefaultPort = 8765
	// PortAttempts bounds the free port search.
	PortAttempts = 100
)

// FindPort returns the first port at or above start that host can bind.
func FindPort(host string, start, attempts int) (int, error) {
	for port := start; port < start+attempts && port <= 65535; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in %d-%d", start, start+attempts-1)
}

var macAppBrowsers = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

var unixAppBrowsers = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"microsoft-edge",
}

// findAppBrowser locates a Chromium-family browser that supports --app.
func findAppBrowser(goos string, exists func(string) bool, lookPath func(string) (string, error)) string {
	if goos == "darwin" {
		for _, p := range macAppBrowsers {
			if exists(p) {
				return p
			}
		}
		return ""
	}
	for _, name := range unixAppBrowsers {
		if p, err := lookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// defaultOpener returns the command that opens url in the user's browser.
func defaultOpener(goos, url string) []string {
	switch goos {
	case "darwin":
		return []string{"open", url}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	default:
		return []string{"xdg-open", url}
	}
}

// OpenBrowser shows url in a chromeless app window when a Chromium-family
// browser is installed, otherwise in the default browser. It reports
// whether app mode was used.
func OpenBrowser(url string) (bool, error) {
	exists := func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	}
	if browser := findAppBrowser(runtime.GOOS, exists, exec.LookPath); browser != "" {
		err := start(browser, "--app="+url)
		if err == nil {
			return true, nil
		}
		log.Printf("Browser: %s failed: %v", browser, err)
	}

	args := defaultOpener(runtime.GOOS, url)
	if err := start(args[0], args[1:]...); err != nil {
		return false, fmt.Errorf("open browser: %w", err)
	}
	return false, nil
}

// start launches a detached process and reaps it in the background.
func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
