package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/gov"
)

var adminTabs = []string{"Proposals", "Treasury", "Members"}

// AdminDashboard is only reached once the admin gate allowed the caller.
func (s *Server) AdminDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tabs": adminTabs})
}

func (s *Server) requireRepos(c *gin.Context) bool {
	if s.repos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "storage not configured"})
		return false
	}
	return true
}

func listOptions(c *gin.Context) data.ListOptions {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return data.ListOptions{Limit: limit, Offset: offset}
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) auditLog(c *gin.Context, action string, id interface{}) {
	s.log.WithField("admin", c.GetString("addr")).WithField("id", id).Info(action)
}

func (s *Server) ListMembers(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	out, err := s.repos.Members.List(c.Request.Context(), listOptions(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

func (s *Server) CreateMember(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	var req struct {
		Address     string `json:"address" binding:"required"`
		DisplayName string `json:"displayName"`
		Tier        string `json:"tier"`
		Role        string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Tier != "" {
		t, err := gov.ParseTier(req.Tier)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Tier = t.String()
	}
	m := &data.Member{Address: req.Address, DisplayName: req.DisplayName, Tier: req.Tier, Role: req.Role}
	if err := s.repos.Members.Create(c.Request.Context(), m); err != nil {
		writeErr(c, err)
		return
	}
	s.auditLog(c, "member created", m.ID)
	c.JSON(http.StatusCreated, m)
}

func (s *Server) UpdateMember(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch data.MemberPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	if patch.Tier != nil {
		t, err := gov.ParseTier(*patch.Tier)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		label := t.String()
		patch.Tier = &label
	}
	m, err := s.repos.Members.Update(c.Request.Context(), id, patch)
	if err != nil {
		writeErr(c, err)
		return
	}
	s.auditLog(c, "member updated", id)
	c.JSON(http.StatusOK, m)
}

func (s *Server) ListTransfers(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	out, err := s.repos.Treasury.List(c.Request.Context(), listOptions(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": out})
}

func (s *Server) CreateTransfer(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	var req struct {
		Recipient string `json:"recipient" binding:"required"`
		Amount    string `json:"amount"    binding:"required"`
		Asset     string `json:"asset"`
		Purpose   string `json:"purpose"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	amt, err := gov.ParseEther(req.Amount)
	if err != nil || amt.Sign() <= 0 {
		badRequest(c, "invalid transfer amount")
		return
	}
	t := &data.TreasuryTransfer{
		Recipient: req.Recipient,
		Amount:    gov.FormatEther(amt),
		Asset:     req.Asset,
		Purpose:   req.Purpose,
	}
	if err := s.repos.Treasury.Create(c.Request.Context(), t); err != nil {
		writeErr(c, err)
		return
	}
	s.auditLog(c, "treasury transfer recorded", t.ID)
	c.JSON(http.StatusCreated, t)
}

func (s *Server) UpdateTransfer(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch data.TransferPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := s.repos.Treasury.Update(c.Request.Context(), id, patch)
	if err != nil {
		writeErr(c, err)
		return
	}
	s.auditLog(c, "treasury transfer updated", id)
	c.JSON(http.StatusOK, t)
}

func (s *Server) ListDrafts(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	out, err := s.repos.Proposals.List(c.Request.Context(), listOptions(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": out})
}

func (s *Server) UpdateDraft(c *gin.Context) {
	if !s.requireRepos(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch data.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := s.repos.Proposals.Update(c.Request.Context(), id, patch)
	if err != nil {
		writeErr(c, err)
		return
	}
	s.auditLog(c, "proposal draft updated", id)
	c.JSON(http.StatusOK, d)
}

// ListSettings shows the active settings overrides.
func (s *Server) ListSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": data.Settings()})
}
