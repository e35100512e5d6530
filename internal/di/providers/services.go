package providers

import (
	"github.com/samber/do/v2"

	"github.com/saucierapp/saucier-server/internal/logger"
	"github.com/saucierapp/saucier-server/internal/service"
)

// ProvideWorkspaceService provides the draft workspace service.
func ProvideWorkspaceService(i do.Injector) (*service.WorkspaceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[service.UpstreamClient](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWorkspaceService(storeHandle.Store, client, log.Logger), nil
}
