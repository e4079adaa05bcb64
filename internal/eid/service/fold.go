package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eidgate/internal/eid/models"
	"eidgate/internal/eid/protocol"
	"eidgate/pkg/platform/audit"
	"eidgate/pkg/platform/sentinel"
)

func (s *Service) startIdentification(ctx context.Context, tokenURL string) {
	if s.sess.bound {
		s.log().Info("identification already in progress, ignoring start")
		return
	}

	s.sess.endSpan()
	s.sess.reset(tokenURL)
	s.sess.spanCtx, s.sess.span = s.tracer.Start(ctx, "eid.identification",
		trace.WithAttributes(attribute.String("eid.attempt_id", s.sess.attemptID.String())),
	)

	l := &listener{svc: s, generation: s.sess.generation}
	if err := s.channel.Bind(ctx, l); err != nil {
		s.channelFailure(ctx, "bind", err)
		s.sess.endSpan()
		return
	}
	s.sess.bound = true

	s.metrics.IncAttemptsStarted()
	s.log().Info("identification started")
	s.audit(ctx, audit.EventIdentificationStarted, "", "", nil)
}

func (s *Service) sessionStarted(ctx context.Context, sessionID string) {
	s.sess.sessionID = sessionID
	s.log().Info("engine session started")

	cmd := protocol.NewCommandWith(protocol.CmdRunAuth, protocol.KeyTCTokenURL, PrepareToken(s.sess.tokenURL))
	if s.send(ctx, cmd) {
		s.emit(models.Loading{})
	}
}

func (s *Service) messageReceived(ctx context.Context, raw []byte) {
	msg := protocol.Decode(raw)
	s.metrics.IncMessageDecoded(msg.Name())
	s.fold(ctx, msg)
}

func (s *Service) disconnected(ctx context.Context, err error) {
	if err != nil {
		s.channelFailure(ctx, "disconnect", err)
	} else {
		s.log().Info("engine closed the channel")
	}
	s.setNFC(false)
	s.sess.bound = false
	s.sess.sessionID = ""
	s.sess.endSpan()
}

func (s *Service) unbind(ctx context.Context) {
	s.setNFC(false)
	if !s.sess.bound {
		return
	}

	if err := s.channel.Unbind(); err != nil {
		s.channelFailure(ctx, "unbind", err)
	}
	s.log().Info("identification unbound")
	s.audit(ctx, audit.EventChannelUnbound, "", "", nil)

	s.sess.bound = false
	s.sess.sessionID = ""
	s.sess.pending = nil
	s.sess.endSpan()
}

// fold applies one inbound message to the session.
func (s *Service) fold(ctx context.Context, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.DecodeError:
		s.metrics.IncDecodeFailure()
		s.log().Warn("failed to decode engine message", "error", m.Err)
		s.audit(ctx, audit.EventDecodeFailed, "malformed_message", "", nil)
		s.emit(models.Error{})

	case protocol.ProtocolError:
		s.log().Warn("engine rejected command for current state", "reason", m.Error)
		s.audit(ctx, audit.EventIdentificationFailed, "bad_state", m.Error, nil)
		s.emit(models.Error{})

	case protocol.AuthenticationStarted:
		s.sess.authStarted = true
		s.log().Debug("authentication started by engine")

	case protocol.AccessRights:
		if !s.sess.authStarted {
			s.violation(ctx, "access_rights_before_auth", m.Name())
			return
		}
		s.sess.rights = m.Rights.Clone()
		s.send(ctx, protocol.NewCommand(protocol.CmdGetCertificate))

	case protocol.CertificateReady:
		s.emit(models.ShowInfo{
			AccessRights: s.sess.rights.Clone(),
			Certificate:  m.Certificate,
			Validity:     m.Validity,
		})

	case protocol.AuthErrorResult:
		result := m.Result
		s.log().Warn("identification failed", "reason", result.Minor)
		s.audit(ctx, audit.EventIdentificationFailed, "engine_result", result.Minor, nil)
		s.emit(models.Error{Result: &result})

	case protocol.AuthFailed:
		s.log().Warn("identification failed", "reason", m.Error)
		s.audit(ctx, audit.EventIdentificationFailed, "engine_error", m.Error, nil)
		s.emit(models.Error{Result: &models.Result{Message: m.Error}})

	case protocol.Completed:
		s.log().Info("identification completed")
		s.audit(ctx, audit.EventIdentificationSucceeded, "", redirectHost(m.URL), s.sess.rights.Clone().Effective)
		s.emit(models.Success{RedirectURL: m.URL})

	case protocol.InsertCard:
		s.setNFC(true)
		s.emit(models.AttachCard{})

	case protocol.CardRecognized:
		if s.sess.cardBlocked {
			s.log().Debug("ignoring reader update, card is blocked")
			return
		}
		s.sess.cardPresent = m.Card != nil
		if !s.sess.cardPresent || s.sess.pending == nil {
			return
		}
		cmd := *s.sess.pending
		s.sess.pending = nil
		if s.send(ctx, cmd) {
			s.emit(models.Loading{})
		}

	case protocol.CardBlocked:
		s.sess.cardBlocked = true
		s.sess.pending = nil
		s.log().Warn("card blocked", "reader", m.Reader.Name)
		s.audit(ctx, audit.EventCardBlocked, "card_inoperative", "", nil)
		s.emit(models.CardBlocked{})

	case protocol.EnterPin:
		if s.promptSuppressed(m) {
			return
		}
		s.emit(models.InsertPin{RetriesRemaining: m.Retries})

	case protocol.EnterPuk:
		if s.promptSuppressed(m) {
			return
		}
		s.emit(models.InsertPuk{})

	case protocol.EnterCan:
		if s.promptSuppressed(m) {
			return
		}
		s.emit(models.InsertCan{})

	case protocol.Status:
		s.log().Debug("engine status", "workflow", m.Workflow, "progress", m.Progress, "state", m.State)

	case protocol.Unknown:
		s.log().Debug("ignoring engine message", "msg_kind", string(m.Kind))

	default:
		s.log().Warn("unhandled engine message", "msg_kind", msg.Name())
	}
}

func (s *Service) promptSuppressed(msg protocol.Message) bool {
	if !s.sess.cardBlocked {
		return false
	}
	s.log().Info("prompt suppressed, card is blocked", "msg_kind", msg.Name())
	return true
}

func (s *Service) setSecret(ctx context.Context, name, value string) {
	if s.sess.cardBlocked {
		s.violation(ctx, "secret_after_card_blocked", name)
		return
	}

	cmd := protocol.NewCommandWith(name, protocol.KeyValue, value)
	if s.sess.cardPresent {
		s.sess.pending = nil
		s.send(ctx, cmd)
		return
	}

	if s.sess.pending != nil {
		s.log().Debug("replacing pending command", "command", s.sess.pending.String())
	}
	s.sess.pending = &cmd
	s.setNFC(true)
	s.emit(models.AttachCard{})
}

// send hands cmd to the channel. Failures are logged and counted, never
// returned to the caller.
func (s *Service) send(ctx context.Context, cmd protocol.Command) bool {
	if !s.sess.bound || s.sess.sessionID == "" {
		s.channelFailure(ctx, "send", fmt.Errorf("send %s: %w", cmd, sentinel.ErrNotConnected))
		return false
	}
	if err := s.channel.Send(s.sess.sessionID, protocol.Encode(cmd)); err != nil {
		s.channelFailure(ctx, "send", fmt.Errorf("send %s: %w", cmd, err))
		return false
	}
	s.metrics.IncCommandSent(cmd.Name)
	if cmd.CarriesSecret() {
		s.log().Debug("command sent", "command", cmd.Name, "payload", "redacted")
	} else {
		s.log().Debug("command sent", "command", cmd.String())
	}
	return true
}

func (s *Service) emit(st models.SessionState) {
	if span := s.sess.span; span != nil {
		span.AddEvent("state", trace.WithAttributes(attribute.String("eid.state", string(st.Kind()))))
		if st.Kind().IsTerminal() {
			if st.Kind() == models.StateError {
				span.SetStatus(codes.Error, "identification failed")
			}
			s.sess.endSpan()
		}
	}
	s.out.push(st)
}

func (s *Service) publishState(st models.SessionState) {
	s.metrics.IncStateEmitted(string(st.Kind()))
	if dropped := s.states.publish(st); dropped > 0 {
		s.logger.Debug("slow subscriber lost a state", "subscribers", dropped, "state", string(st.Kind()))
	}
}

func (s *Service) setNFC(enabled bool) {
	if s.nfcEnabled == enabled {
		return
	}
	s.nfcEnabled = enabled
	s.nfc.publish(enabled)
	s.log().Debug("nfc signal changed", "enabled", enabled)
}

func (s *Service) violation(ctx context.Context, reason, detail string) {
	s.metrics.IncProtocolViolation(reason)
	s.log().Warn("protocol violation", "reason", reason, "msg_kind", detail)
	s.audit(ctx, audit.EventProtocolViolation, reason, detail, nil)
}

func (s *Service) channelFailure(ctx context.Context, op string, err error) {
	s.metrics.IncChannelFailure(op)
	s.log().Error("engine channel failure", "op", op, "error", err)
	if span := s.sess.span; span != nil {
		span.RecordError(err)
	}
	s.audit(ctx, audit.EventChannelFailed, op, err.Error(), nil)
}

func (s *Service) audit(ctx context.Context, action audit.Action, reason, detail string, rights []string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		AttemptID:    s.sess.attemptID.String(),
		SessionID:    s.sess.sessionID,
		Action:       string(action),
		Reason:       reason,
		Detail:       detail,
		AccessRights: rights,
	})
	if err != nil {
		s.log().Warn("failed to emit audit event", "action", string(action), "error", err)
	}
}

func (s *Service) log() *slog.Logger {
	return s.logger.With(
		"attempt_id", s.sess.attemptID.String(),
		"session_id", s.sess.sessionID,
	)
}

func redirectHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
