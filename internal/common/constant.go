package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the admin
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RecordSchema marks ledger records written by this application. Records
// without it belong to unrelated ledger traffic.
const RecordSchema = "chainkeeper/account/v1"
