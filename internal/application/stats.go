package application

import "expvar"

// Exposed under /debug/vars as "identity".
var stats = expvar.NewMap("identity")

const (
	statSignups        = "signups"
	statVerifications  = "verifications"
	statVerifyResent   = "verifications_resent"
	statLoginsOK       = "logins_ok"
	statLoginsFailed   = "logins_failed"
	statLogouts        = "logouts"
	statGateRejected   = "gate_rejected"
	statAvatarsUpdated = "avatars_updated"
	statAvatarsFailed  = "avatars_failed"
	statMailFailures   = "mail_failures"
)
