package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/obsidianwallet/obsidian-wallet-connect/common"
)

func (api *APIService) Stop() error {
	return nil
}

func (api *APIService) Start() error {
	return nil
}

// SwitchNetwork makes network the chain the session switches the wallet to.
func (api *APIService) SwitchNetwork(network common.ChainSpec) error {
	api.session.SetTarget(network)
	api.logger.Info().Str("network", network.Name).Str("chainID", network.ChainIDHex()).Msg("target network set")
	return nil
}

func (api *APIService) ListNetworks(c *gin.Context) {
	c.JSON(http.StatusOK, resultResponse{Result: api.networkController.GetNetworkList()})
}

func (api *APIService) GetCurrentNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, resultResponse{Result: api.networkController.GetCurrentNetwork()})
}

func (api *APIService) AddNetwork(c *gin.Context) {
	var network common.ChainSpec
	if err := c.ShouldBindJSON(&network); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := api.networkController.AddNetwork(network); err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: "ok"})
}

func (api *APIService) RemoveNetwork(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	if err := api.networkController.RemoveNetwork(name); err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: "ok"})
}

func (api *APIService) SelectNetwork(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	if err := api.networkController.SwitchNetwork(name); err != nil {
		api.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: api.networkController.GetCurrentNetwork()})
}

func networkStatusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, common.ErrInvalidChain):
		return http.StatusBadRequest, true
	case errors.Is(err, common.ErrNetworkNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, common.ErrNetworkExists), errors.Is(err, common.ErrNetworkInUse):
		return http.StatusConflict, true
	}
	return 0, false
}
