package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	krb5client "github.com/jcmturner/gokrb5/v8/client"

	"github.com/isometry/groupsync/internal/logging"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// performKerberosAuth binds conn with GSSAPI.
func performKerberosAuth(ctx context.Context, conn *ldap.Conn, config *ConnectionConfig, server *ServerInfo) error {
	cfg, err := prepareKerberosConfig(config)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, source, err := createGSSAPIClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemLDAP, "Performing GSSAPI bind", map[string]any{
		"realm":       cfg.KerberosRealm,
		"principal":   cfg.Username,
		"spn":         spn,
		"credentials": source,
	})

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}
	return nil
}

// createGSSAPIClient creates a GSSAPI client.
// Priority order: credential cache, keytab, password.
func createGSSAPIClient(cfg *ConnectionConfig) (*gssapi.Client, string, error) {
	if !fileExists(cfg.KerberosConfig) {
		return nil, "", fmt.Errorf("kerberos configuration file not found at %s; "+
			"create it or set kerberos_config. Example:\n%s",
			cfg.KerberosConfig, exampleKrb5Conf(cfg.KerberosRealm))
	}

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		c, err := gssapi.NewClientFromCCache(cfg.KerberosCCache, cfg.KerberosConfig, krb5client.DisablePAFXFAST(true))
		return c, "ccache", err
	}

	if ccache := getDefaultCCachePath(); fileExists(ccache) {
		c, err := gssapi.NewClientFromCCache(ccache, cfg.KerberosConfig, krb5client.DisablePAFXFAST(true))
		return c, "default_ccache", err
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		c, err := gssapi.NewClientWithKeytab(cfg.Username, cfg.KerberosRealm, cfg.KerberosKeytab, cfg.KerberosConfig, krb5client.DisablePAFXFAST(true))
		return c, "keytab", err
	}

	if cfg.Password != "" {
		c, err := gssapi.NewClientWithPassword(cfg.Username, cfg.KerberosRealm, cfg.Password, cfg.KerberosConfig, krb5client.DisablePAFXFAST(true))
		return c, "password", err
	}

	return nil, "", fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// buildServicePrincipal returns KerberosSPN, or ldap/<host> for server.
func buildServicePrincipal(cfg *ConnectionConfig, server *ServerInfo) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("configuration is required for service principal")
	}

	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if server == nil || server.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	return "ldap/" + server.Host, nil
}

// prepareKerberosConfig returns a copy of config with Kerberos defaults
// applied. A realm embedded in the username (user@REALM) is split out.
func prepareKerberosConfig(config *ConnectionConfig) (*ConnectionConfig, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	cfg := *config
	if cfg.KerberosConfig == "" {
		cfg.KerberosConfig = defaultKrb5Conf
	}

	if user, realm, ok := strings.Cut(cfg.Username, "@"); ok {
		cfg.Username = user
		if cfg.KerberosRealm == "" {
			cfg.KerberosRealm = realm
		}
	}

	if cfg.KerberosRealm == "" {
		return nil, fmt.Errorf("kerberos realm is required (set kerberos_realm or include realm in username)")
	}

	if cfg.Username == "" {
		return nil, fmt.Errorf("username (principal) is required for Kerberos authentication")
	}

	return &cfg, nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}

func exampleKrb5Conf(realm string) string {
	if realm == "" {
		realm = "EXAMPLE.COM"
	}
	kdc := "dc." + strings.ToLower(realm)

	return fmt.Sprintf(`[libdefaults]
    default_realm = %[1]s

[realms]
    %[1]s = {
        kdc = %[2]s:88
    }`, realm, kdc)
}
