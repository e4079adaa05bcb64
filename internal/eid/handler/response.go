package handler

import "eidgate/internal/eid/models"

// SnapshotResponse is the body of GET /v1/identifications.
type SnapshotResponse struct {
	AttemptID      string              `json:"attempt_id,omitempty"`
	SessionID      string              `json:"session_id,omitempty"`
	ChannelBound   bool                `json:"channel_bound"`
	AuthStarted    bool                `json:"auth_started"`
	CardPresent    bool                `json:"card_present"`
	CardBlocked    bool                `json:"card_blocked"`
	PendingCommand string              `json:"pending_command,omitempty"`
	AccessRights   models.AccessRights `json:"access_rights"`
	State          *StateResponse      `json:"state,omitempty"`
	NFCEnabled     bool                `json:"nfc_enabled"`
}

// StateResponse flattens a SessionState variant. Only the fields of the
// reported kind are set.
type StateResponse struct {
	Kind             models.StateKind     `json:"kind"`
	RetriesRemaining *int                 `json:"retries_remaining,omitempty"`
	AccessRights     *models.AccessRights `json:"access_rights,omitempty"`
	Certificate      *models.Certificate  `json:"certificate,omitempty"`
	Validity         *models.Validity     `json:"validity,omitempty"`
	RedirectURL      string               `json:"redirect_url,omitempty"`
	Result           *models.Result       `json:"result,omitempty"`
}

func toSnapshotResponse(snap models.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		SessionID:      snap.SessionID,
		ChannelBound:   snap.ChannelBound,
		AuthStarted:    snap.AuthStarted,
		CardPresent:    snap.CardPresent,
		CardBlocked:    snap.CardBlocked,
		PendingCommand: snap.PendingCommand,
		AccessRights:   snap.AccessRights,
		State:          toStateResponse(snap.State),
		NFCEnabled:     snap.NFCEnabled,
	}
	if !snap.AttemptID.IsNil() {
		resp.AttemptID = snap.AttemptID.String()
	}
	if resp.AccessRights.Effective == nil {
		resp.AccessRights.Effective = []string{}
	}
	return resp
}

func toStateResponse(st models.SessionState) *StateResponse {
	if st == nil {
		return nil
	}
	resp := &StateResponse{Kind: st.Kind()}
	switch s := st.(type) {
	case models.InsertPin:
		retries := s.RetriesRemaining
		resp.RetriesRemaining = &retries
	case models.ShowInfo:
		rights, cert, validity := s.AccessRights, s.Certificate, s.Validity
		resp.AccessRights = &rights
		resp.Certificate = &cert
		resp.Validity = &validity
	case models.Success:
		resp.RedirectURL = s.RedirectURL
	case models.Error:
		resp.Result = s.Result
	}
	return resp
}
