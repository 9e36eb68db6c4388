package homograph

// TrustedDomains is the static list of high-value domains checked for
// lookalikes. Loaded once at process start; never mutated.
var TrustedDomains = []string{
	"google.com",
	"facebook.com",
	"amazon.com",
	"apple.com",
	"microsoft.com",
	"paypal.com",
	"netflix.com",
	"instagram.com",
	"twitter.com",
	"linkedin.com",
	"github.com",
	"youtube.com",
	"whatsapp.com",
	"wikipedia.org",
	"yahoo.com",
	"ebay.com",
	"dropbox.com",
	"adobe.com",
	"chase.com",
	"wellsfargo.com",
	"bankofamerica.com",
	"coinbase.com",
	"binance.com",
	"steamcommunity.com",
	"outlook.com",
	"icloud.com",
}
