package catalog

// Detail carries the static descriptive copy shown on an item's detail view.
// Assets without an entry simply render without the extended description.
type Detail struct {
	Description string   `json:"description"`
	Founded     string   `json:"founded"`
	KeyFeatures []string `json:"key_features"`
	UseCase     string   `json:"use_case"`
}

// DetailFor returns the static detail copy for a catalog item id.
func DetailFor(id string) (Detail, bool) {
	d, ok := details[id]
	return d, ok
}

var details = map[string]Detail{
	"bitcoin": {
		Description: "Bitcoin is the first and most well-known cryptocurrency, created in 2009 by the pseudonymous Satoshi Nakamoto.",
		Founded:     "2009",
		KeyFeatures: []string{
			"First decentralized cryptocurrency",
			"Limited supply of 21 million coins",
			"Proof-of-work consensus mechanism",
		},
		UseCase: "Digital store of value, peer-to-peer payments, and investment",
	},
	"ethereum": {
		Description: "Ethereum is a decentralized platform that enables smart contracts and decentralized applications to run without downtime or third-party interference.",
		Founded:     "2015",
		KeyFeatures: []string{
			"Smart contract functionality",
			"Decentralized applications platform",
			"Ethereum Virtual Machine",
		},
		UseCase: "Smart contracts, DeFi, NFTs, and decentralized applications",
	},
	"binancecoin": {
		Description: "Binance Coin is the native cryptocurrency of the Binance ecosystem and powers the Binance Smart Chain.",
		Founded:     "2017",
		KeyFeatures: []string{
			"Binance Smart Chain integration",
			"Exchange fee discounts",
			"Token burns to reduce supply",
		},
		UseCase: "Trading fee discounts, DeFi, and cross-chain transactions",
	},
	"ripple": {
		Description: "Ripple is a digital payment protocol and cryptocurrency designed for fast, low-cost international money transfers.",
		Founded:     "2012",
		KeyFeatures: []string{
			"Fast transaction settlement",
			"Low transaction costs",
			"Consensus ledger technology",
		},
		UseCase: "Cross-border payments, remittances, and banking solutions",
	},
	"cardano": {
		Description: "Cardano is a third-generation blockchain platform aiming to solve the scalability and interoperability issues of earlier networks.",
		Founded:     "2017",
		KeyFeatures: []string{
			"Peer-reviewed research foundation",
			"Proof-of-stake consensus",
			"Layered architecture",
		},
		UseCase: "Smart contracts, identity management, and sustainable blockchain applications",
	},
	"dogecoin": {
		Description: "Dogecoin started as a joke based on the doge meme and grew into a widely recognized cryptocurrency with an active community.",
		Founded:     "2013",
		KeyFeatures: []string{
			"Inflationary supply",
			"Low transaction fees",
			"Active tipping culture",
		},
		UseCase: "Tipping, micro-payments, and community fundraising",
	},
}
