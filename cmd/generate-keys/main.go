// Command generate-keys outputs a fresh Ed25519 signing key for a
// third-party auditor: the seed goes in the auditor's own config file, and
// the public key goes to whoever maintains the KT service's deployment
// configuration, to be embedded as PublicConfig.AuditorKey.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	fmt.Println()

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		log.Fatal(err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	fmt.Printf("Signing Key (auditor config's signing-key):\n%x\n\n", seed)
	fmt.Printf("Public Key (KT service's auditor-key):\n%x\n", pub)
}
