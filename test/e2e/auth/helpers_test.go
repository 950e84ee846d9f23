package auth_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, user operations, and assertions.
 */

const (
	testImageName  = "gatekeeper-auth-test:latest"
	redisImageName = "redis:7-alpine"

	testPassword = "Secret123!"
)

// TestMain builds the Docker image once before all tests and removes it
// after they complete.
func TestMain(m *testing.M) {
	if testing.Short() {
		os.Exit(m.Run())
	}

	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image from the repository root.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_DATABASE_FILE": "/data/auth.db",
		"AUTH_PEPPER_FILE":   "/data/pepper",
		"AUTH_TOTP_ISSUER":   "Gatekeeper E2E",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
	}
}

// setupAuthContainer starts the auth service with the in-process session
// cache and returns the base URL.
func setupAuthContainer(t *testing.T) (string, func()) {
	t.Helper()
	return startAuthContainer(t, baseEnv(), nil)
}

// setupAuthContainerWithRedis starts Redis and the auth service on a shared
// network, with sessions stored in Redis.
func setupAuthContainerWithRedis(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	net, err := network.New(ctx)
	require.NoError(t, err)

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          redisImageName,
			ExposedPorts:   []string{"6379/tcp"},
			Networks:       []string{net.Name},
			NetworkAliases: map[string][]string{net.Name: {"redis"}},
			WaitingFor:     wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	env := baseEnv()
	env["CACHE_DRIVER"] = "redis"
	env["REDIS_URL"] = "redis://redis:6379/0"

	baseURL, cleanupAuth := startAuthContainer(t, env, []string{net.Name})

	cleanup := func() {
		cleanupAuth()
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
		if err := net.Remove(ctx); err != nil {
			t.Logf("failed to remove network: %v", err)
		}
	}

	return baseURL, cleanup
}

func startAuthContainer(t *testing.T, env map[string]string, networks []string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Networks:     networks,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// registerAndLogin creates login and returns a fresh session for it.
func registerAndLogin(t *testing.T, client *authsdk.SDKClient, login string) *authsdk.Session {
	t.Helper()

	require.NoError(t, client.Register(t.Context(), login, testPassword), "Register should succeed")

	session, err := client.Login(t.Context(), login, testPassword)
	require.NoError(t, err, "Login should succeed")
	require.NotNil(t, session, "Session should not be nil")

	return session
}

// enrollTOTP runs generate and enable, returning the secret and backup codes.
func enrollTOTP(t *testing.T, session *authsdk.Session) (string, []string) {
	t.Helper()

	gen, err := session.GenerateTOTP(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, gen.Secret)

	codes, err := session.EnableTOTP(t.Context(), totpCode(t, gen.Secret))
	require.NoError(t, err)
	require.NotEmpty(t, codes)

	return gen.Secret, codes
}

func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
