package devicesim

import (
	"bytes"

	"mtpz_auth/internal/model"
)

// A throwaway RSA-1024 pair for simulation and tests. Never a provisioned key.
const (
	syntheticModulus = "bb1ca54d217a65acff486266a620013b654b60dc05d7522844100ed4222a4038" +
		"433b1d2275d7a3c8f51f645f1d3e9b494a7d563d468ed23ec4ec2f647de89b24" +
		"ba09fa406a4bfc450aafe4efb523ad73af3cc7b379b0a5358adf0777b8b48146" +
		"feae58ff868620ca82249742a1c700969ee0eaf073d2c0602cc9ed72f8e7b0c9"

	syntheticPrivateExponent = "3f9dcbaddfb6079fbbe3d660e4167994c229d0b2bde1a9733b40e269c97be7fd" +
		"b90dfe27db3d07d8a94e9507a99fc1983795499ee7c063472818cd3c337ac454" +
		"30afb1a1edfdfc08b4aa664ac78ae4c1f44b619507f81395917f44c7d6899bde" +
		"c13e8140f9ba7e5d65418b72b0ff6a0373bf861bdcf89cddd643978f326b3e21"

	syntheticPublicExponent = "10001"
)

// SyntheticKeyMaterial returns self-consistent fake key material: a synthetic
// RSA pair, a fixed cipher key and a patterned certificate blob. Suitable for
// the simulator and for tests; useless against real hardware.
func SyntheticKeyMaterial() *model.KeyMaterial {
	certs := bytes.Repeat([]byte{0xa5}, model.CertificateSize)

	return &model.KeyMaterial{
		PublicExponent:  syntheticPublicExponent,
		EncryptionKey:   []byte("0123456789abcdef"),
		Modulus:         syntheticModulus,
		PrivateExponent: syntheticPrivateExponent,
		Certificates:    certs,
	}
}
