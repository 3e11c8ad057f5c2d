package main

import (
	"errors"
	"flag"

	"go.uber.org/zap"

	"mtpz_auth/internal/devicesim"
	"mtpz_auth/internal/model"
	"mtpz_auth/internal/protocol/handshake"
	"mtpz_auth/internal/repository/keyfile"
	"mtpz_auth/internal/utils/log"
)

// mtpzcheck verifies provisioned key material by running the complete
// handshake against the in-process simulated device.
func main() {
	keyPath := flag.String("keyfile", "", "path to the key-material file (default ~/.mtpz-data)")
	synthetic := flag.Bool("synthetic", false, "use built-in synthetic key material instead of a key file")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		log.Init(l)
	}

	km, err := loadMaterial(*keyPath, *synthetic)
	if err != nil {
		if errors.Is(err, keyfile.ErrProvisioning) {
			// Provisioning problems disable the feature, they are not fatal
			// to a host process; the check still reports and exits nonzero.
			log.Fatal("key material unavailable", zap.Error(err))
		}
		log.Fatal("load key material", zap.Error(err))
	}

	device, err := devicesim.New(km)
	if err != nil {
		log.Fatal("init simulated device", zap.Error(err))
	}

	session, err := handshake.New(km, device)
	if err != nil {
		log.Fatal("init handshake", zap.Error(err))
	}

	if err := session.Run(); err != nil {
		log.Fatal("handshake failed", zap.Error(err), zap.String("state", session.State().String()))
	}

	if !device.TrustedEnabled {
		log.Fatal("handshake finished but trusted operations were not enabled")
	}

	log.Info("key material verified", zap.String("state", session.State().String()))
}

func loadMaterial(path string, synthetic bool) (*model.KeyMaterial, error) {
	if synthetic {
		return devicesim.SyntheticKeyMaterial(), nil
	}
	if path == "" {
		p, err := keyfile.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return keyfile.Load(path)
}
