//go:build !prod

package web

import "github.com/sirupsen/logrus"

// Dev builds often run headless or over ssh, so only print where to go.
func openBrowser(url string) {
	logrus.WithField("url", url).Info("open the UI in a browser")
}
