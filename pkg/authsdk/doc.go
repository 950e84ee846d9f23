/*
Package authsdk is a Go client for the gatekeeper authentication service.

# SDKClient vs Session

SDKClient covers the unauthenticated endpoints and logs in:

	client := authsdk.NewSDKClient("https://auth.example.com")

	if err := client.Register(ctx, "alice", "correct horse"); err != nil {
		// *APIError with Code registration_failed
	}

	session, err := client.Login(ctx, "alice", "correct horse")
	if errors.Is(err, authsdk.ErrRegistrationConfirmationNeeded) {
		// ask the user to confirm their account
	}

A Session holds one opaque bearer token. Tokens are not refreshable; once
Expired reports true every call fails with ErrSessionExpired and the caller
logs in again.

	me, err := session.Me(ctx)

# TOTP

	enrollment, err := session.GenerateTOTP(ctx)   // show enrollment.QRCode
	codes, err := session.EnableTOTP(ctx, "123456") // store codes offline

	err = session.DisableTOTPWithToken(ctx, "654321")
	err = session.DisableTOTPWithBackupCode(ctx, codes[0])

# Errors

Failed calls return *APIError. It matches the predefined values with
errors.Is by error code:

	if errors.Is(err, authsdk.ErrInvalidBackupCode) { ... }
*/
package authsdk
