package domain

// TOTPEnrollment is returned once by a generate call. Nothing in it is
// persisted on the user until the enrollment is enabled.
type TOTPEnrollment struct {
	Secret    string // Base32 encoded secret for manual entry
	URL       string // otpauth:// provisioning URL
	QRCode    string // data:image/png;base64 rendering of URL
	Issuer    string
	Account   string
	Algorithm string // e.g. SHA1
	Digits    int
	Period    uint // seconds per time step
}
