package handler

import (
	"database/sql"

	"github.com/hitoshi/launchboard/internal/auth"
	"github.com/hitoshi/launchboard/internal/event"
	"github.com/hitoshi/launchboard/internal/job"
	"github.com/hitoshi/launchboard/internal/profile"
	"github.com/hitoshi/launchboard/internal/security"
	"github.com/hitoshi/launchboard/internal/storage"
	"github.com/hitoshi/launchboard/internal/user"
)

// --- compile-time interface checks ---
//
// ドメインサービスはhandlerのインターフェースをそのまま満たすため、アダプタを介さずに注入する。

var _ UserServiceInterface = (*user.Service)(nil)
var _ ProfileServiceInterface = (*profile.Service)(nil)
var _ JobServiceInterface = (*job.Service)(nil)
var _ EventServiceInterface = (*event.Service)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)
var _ ObjectOpener = (*storage.FileStore)(nil)
var _ HealthChecker = (*sql.DB)(nil)
var _ Excerpter = security.ContentSanitizerService(nil)
