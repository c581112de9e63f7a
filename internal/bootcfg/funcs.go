package bootcfg

import (
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// nondeterministic lists sprig functions whose output depends on the
// clock, randomness, the process environment, or the network. The date
// family is removed wholesale: several of its members fall back to
// time.Now or the local timezone depending on their input.
var nondeterministic = []string{
	"now", "ago", "date", "dateInZone", "dateModify", "date_in_zone", "date_modify",
	"duration", "durationRound", "htmlDate", "htmlDateInZone",
	"toDate", "mustDateModify", "mustToDate", "unixEpoch",
	"env", "expandenv", "getHostByName",
	"randAlpha", "randAlphaNum", "randAscii", "randNumeric", "randBytes", "randInt",
	"shuffle", "uuidv4",
	"bcrypt", "htpasswd", "encryptAES",
	"genPrivateKey", "genCA", "genCAWithKey",
	"genSelfSignedCert", "genSelfSignedCertWithKey",
	"genSignedCert", "genSignedCertWithKey",
}

// funcMap returns the sprig text funcmap with every nondeterministic
// function removed, so identical inputs always render identical bytes.
func funcMap() template.FuncMap {
	m := sprig.TxtFuncMap()
	for _, name := range nondeterministic {
		delete(m, name)
	}
	return m
}
