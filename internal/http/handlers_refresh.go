package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"recibos/internal/log"
	"recibos/internal/services"
)

// handleRefresh reloads the data set. With a Refresher the request is queued
// for the mirror worker; otherwise every cache is cleared and reloaded here.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	logger := log.FromContext(r.Context())
	atomic.AddInt64(&s.appMetrics.refreshes, 1)

	if s.refresher != nil {
		id, err := s.refresher.RequestRefresh(r.Context())
		if err != nil {
			atomic.AddInt64(&s.appMetrics.refreshFailures, 1)
			logger.ErrorContext(r.Context(), "Refresh request failed",
				log.FieldError, err,
				log.FieldOperation, log.OpRefresh)
			msg := "Não foi possível pedir a atualização dos dados"
			if errors.Is(err, services.ErrRefreshUnavailable) {
				msg = "Atualização indisponível: sem ligação ao serviço de sincronização"
			}
			ServiceUnavailableError(msg).TriggerErrorNotification(msg).Write(w)
			return
		}
		// the mirror changes once the worker has synced; drop what we hold now
		s.data.Clear()
		logger.InfoContext(r.Context(), "Refresh requested", log.FieldRefreshID, id)
		NewHTMXResponse().
			TriggerDataRefreshed(id).
			TriggerSuccessNotification("Atualização pedida. Os dados serão sincronizados em breve.").
			RefreshStatus("Atualização pedida", false).
			Write(w)
		return
	}

	ctx, cancel := s.loadContext(r)
	defer cancel()
	res, err := s.data.RefreshAll(ctx)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.refreshFailures, 1)
		logger.ErrorContext(r.Context(), "Refresh failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRefresh)
		NewHTMXResponse().
			TriggerDataRefreshed("").
			TriggerErrorNotification("Erro ao atualizar os dados").
			RefreshStatus("Erro ao atualizar", true).
			Write(w)
		return
	}

	msg := fmt.Sprintf("Dados atualizados: %d faturas em %d anos", res.Invoices, len(res.Years))
	if res.Skipped > 0 {
		msg += fmt.Sprintf(" (%d linhas ignoradas)", res.Skipped)
	}
	NewHTMXResponse().
		TriggerDataRefreshed("").
		TriggerSuccessNotification(msg).
		RefreshStatus("Dados atualizados", false).
		Write(w)
}
