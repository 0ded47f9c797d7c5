package handlers

import (
	"context"
	"database/sql"
	"log"

	"backend/models"
	"backend/repository"
	"backend/services"
)

// Global notification services, set from main.go. Either may be nil when
// the deployment has no FCM credentials or SMTP settings; notification
// sends are then skipped.
var (
	GlobalFCMService   *services.FCMService
	GlobalEmailService *services.EmailService
)

// SetFCMService sets the global FCM service
func SetFCMService(fcmService *services.FCMService) {
	GlobalFCMService = fcmService
}

// SetEmailService sets the global email service
func SetEmailService(emailService *services.EmailService) {
	GlobalEmailService = emailService
}

// NotifyProposalExtracted fans out push and email notifications to the
// admin users after a vendor's proposal finishes extraction. Failures are
// logged, never surfaced to the extraction flow.
func NotifyProposalExtracted(ctx context.Context, db *sql.DB, rfp models.Rfp, vendorName string) {
	recipients, err := repository.FetchAdminRecipients(db)
	if err != nil {
		log.Printf("Failed to fetch notification recipients: %v", err)
		return
	}

	for _, r := range recipients {
		if GlobalFCMService != nil {
			if err := GlobalFCMService.NotifyProposalExtracted(ctx, r.ID, rfp, vendorName); err != nil {
				log.Printf("Failed to notify user %d of extraction for RFP %s: %v", r.ID, rfp.ID, err)
			}
		}
		if GlobalEmailService != nil && GlobalEmailService.Enabled() {
			if err := GlobalEmailService.SendProposalExtractedEmail(r.Name, r.Email, rfp, vendorName); err != nil {
				log.Printf("Failed to email %s about extraction for RFP %s: %v", r.Email, rfp.ID, err)
			}
		}
	}
}

// NotifyDeadlineApproaching fans out reminders of an approaching RFP
// deadline to the admin users. Called from the daily cron job.
func NotifyDeadlineApproaching(ctx context.Context, db *sql.DB, rfp models.Rfp) {
	proposalCount, err := repository.CountProposals(db, rfp.ID)
	if err != nil {
		log.Printf("Failed to count proposals for RFP %s: %v", rfp.ID, err)
	}

	recipients, err := repository.FetchAdminRecipients(db)
	if err != nil {
		log.Printf("Failed to fetch reminder recipients: %v", err)
		return
	}

	for _, r := range recipients {
		if GlobalFCMService != nil {
			if err := GlobalFCMService.NotifyDeadlineApproaching(ctx, r.ID, rfp, proposalCount); err != nil {
				log.Printf("Failed to notify user %d of deadline for RFP %s: %v", r.ID, rfp.ID, err)
			}
		}
		if GlobalEmailService != nil && GlobalEmailService.Enabled() {
			if err := GlobalEmailService.SendDeadlineReminderEmail(r.Name, r.Email, rfp, proposalCount); err != nil {
				log.Printf("Failed to email %s about deadline for RFP %s: %v", r.Email, rfp.ID, err)
			}
		}
	}
}
