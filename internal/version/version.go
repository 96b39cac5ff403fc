// Package version holds build information of the client and the protocol
// version it speaks.
package version

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"

	"github.com/aatumaykin/jobqueue/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

// ProtocolVersion - версия протокола обмена с демоном.
// Демон совместим, если совпадают major и minor.
const ProtocolVersion = "1.2.0"

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// CompatibleProtocol проверяет версию протокола демона.
// Возвращает ошибку, если версию нельзя разобрать или она несовместима.
func CompatibleProtocol(server string) error {
	return checkCompatible(ProtocolVersion, server)
}

func checkCompatible(client, server string) error {
	cv, err := goversion.NewVersion(client)
	if err != nil {
		return fmt.Errorf("invalid client protocol version %q: %w", client, err)
	}
	sv, err := goversion.NewVersion(server)
	if err != nil {
		return fmt.Errorf("invalid daemon protocol version %q: %w", server, err)
	}

	seg := cv.Segments()
	constraint, err := goversion.NewConstraint(fmt.Sprintf("~> %d.%d.0", seg[0], seg[1]))
	if err != nil {
		return fmt.Errorf("failed to build protocol constraint: %w", err)
	}
	if !constraint.Check(sv) {
		return fmt.Errorf("protocol mismatch: client speaks %s, daemon speaks %s", cv, sv)
	}
	return nil
}

// FormatInfo возвращает строку с версией клиента и протокола
func FormatInfo() string {
	return fmt.Sprintf("jqctl %s (protocol %s, built %s, commit %s, %s)", Version, ProtocolVersion, BuildTime, GitCommit, GoVersion)
}
