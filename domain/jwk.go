package domain

// JSONWebKey is the stored form of a signing or encryption key. SerializedKey
// holds the PEM-encoded private key and is replaced in place on rotation.
type JSONWebKey struct {
	Kid           string `bson:"_id" json:"kid"`
	Kty           string `bson:"kty" json:"kty"`
	Use           string `bson:"use" json:"use"`
	Alg           string `bson:"alg" json:"alg"`
	SerializedKey string `bson:"serialized_key,omitempty" json:"-"`
}

// Key use values.
const (
	KeyUseSignature  = "sig"
	KeyUseEncryption = "enc"
)
