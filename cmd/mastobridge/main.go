// Command mastobridge runs the Mastodon-API-to-AT-Protocol gateway.
package main

import "github.com/mastobridge/mastobridge/cmd/mastobridge/cmd"

func main() {
	cmd.Execute()
}
