// Package mail renders and delivers account email. [SMTPMailer] talks to a
// real relay; [LogMailer] writes messages to a structured log for local
// development. Both satisfy goAccount.Mailer.
package mail
