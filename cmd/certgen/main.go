// Command certgen renders International Driving Permit verification
// certificates to PDF, previews them as HTML and serves them over HTTP.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
