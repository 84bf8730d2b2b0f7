package dto

// Proof represents a Linked Data Proof attached to a credential or
// presentation. VerificationMethod is either a URI string or an object
// carrying inline key material.
type Proof struct {
	Type               string      `json:"type" mapstructure:"type"`
	Created            string      `json:"created" mapstructure:"created"`
	VerificationMethod interface{} `json:"verificationMethod" mapstructure:"verificationMethod"`
	ProofPurpose       string      `json:"proofPurpose" mapstructure:"proofPurpose"`
	ProofValue         string      `json:"proofValue,omitempty" mapstructure:"proofValue"`
	JWS                string      `json:"jws,omitempty" mapstructure:"jws"`
	Cryptosuite        string      `json:"cryptosuite,omitempty" mapstructure:"cryptosuite"`
	Challenge          string      `json:"challenge,omitempty" mapstructure:"challenge"`
	Domain             string      `json:"domain,omitempty" mapstructure:"domain"`
}

// SuiteKey returns the key used to look up the signature suite: the
// cryptosuite for DataIntegrityProof, the proof type otherwise.
func (p *Proof) SuiteKey() string {
	if p.Type == "DataIntegrityProof" && p.Cryptosuite != "" {
		return p.Cryptosuite
	}
	return p.Type
}

// VerificationMethodID returns the method id whether the reference is a
// string or an inline object.
func (p *Proof) VerificationMethodID() string {
	switch vm := p.VerificationMethod.(type) {
	case string:
		return vm
	case map[string]interface{}:
		id, _ := vm["id"].(string)
		return id
	}
	return ""
}
