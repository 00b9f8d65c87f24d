package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

func (s *Server) handleEmailSend(w http.ResponseWriter, r *http.Request) {
	if s.deps.Email == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("email"))
		return
	}

	var req saas.SendEmailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.deps.Email.SendEmail(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEmailTemplate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Email == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("email"))
		return
	}

	var req saas.SendEmailTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.deps.Email.SendEmailTemplate(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEmailStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Email == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("email"))
		return
	}

	status, err := s.deps.Email.GetEmailStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]saas.DeliveryStatus{"status": status})
}

func (s *Server) handleSMSSend(w http.ResponseWriter, r *http.Request) {
	if s.deps.SMS == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("sms"))
		return
	}

	var req saas.SendSMSRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.deps.SMS.SendSMS(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSMSTemplate(w http.ResponseWriter, r *http.Request) {
	if s.deps.SMS == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("sms"))
		return
	}

	var req saas.SendSMSTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.deps.SMS.SendSMSTemplate(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSMSStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.SMS == nil {
		writeError(w, r, cloudruntimes.NotImplementedf("sms"))
		return
	}

	status, err := s.deps.SMS.GetSMSStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]saas.DeliveryStatus{"status": status})
}
