package classify

// Default returns the universe the dataset was originally built for: US large
// caps, the index/bond/metal ETFs used as benchmarks and four crypto pairs.
func Default() *Maps {
	classes := make(map[string]AssetClass, len(defaultUniverse))
	sectors := make(map[string]string, len(defaultUniverse))
	benchmarks := make(map[string]string, len(defaultUniverse))
	names := make(map[string]string, len(defaultUniverse))
	for _, in := range defaultUniverse {
		classes[in.Ticker] = in.Class
		sectors[in.Ticker] = in.Sector
		benchmarks[in.Ticker] = in.Benchmark
		if in.Name != "" {
			names[in.Ticker] = in.Name
		}
	}
	return NewMaps(classes, sectors, benchmarks, names)
}

var defaultUniverse = []Instrument{
	{"BTC-USD", Crypto, "Crypto", "BTC-USD", "Bitcoin"},
	{"ETH-USD", Crypto, "Crypto", "BTC-USD", ""},
	{"XRP-USD", Crypto, "Crypto", "BTC-USD", ""},
	{"LTC-USD", Crypto, "Crypto", "BTC-USD", "Litecoin"},

	{"SPY", ETF, "ETF", "SPY", "SPDR S&P 500 ETF Trust"},
	{"QQQ", ETF, "ETF", "QQQ", "Invesco QQQ Trust"},
	{"DIA", ETF, "ETF", "DIA", "SPDR Dow Jones Industrial Average ETF"},
	{"TLT", ETF, "ETF", "TLT", "iShares 20+ Year Treasury Bond ETF"},
	{"IEF", ETF, "ETF", "IEF", "iShares 7-10 Year Treasury Bond ETF"},
	{"GLD", ETF, "ETF", "GLD", "SPDR Gold Shares"},
	{"SLV", ETF, "ETF", "SLV", "iShares Silver Trust"},

	{"AAPL", Equity, "Technologie", "QQQ", "Apple Inc."},
	{"MSFT", Equity, "Technologie", "QQQ", "Microsoft Corp."},
	{"GOOGL", Equity, "Technologie", "QQQ", "Alphabet Inc. (Class A)"},
	{"META", Equity, "Technologie", "QQQ", "Meta Platforms Inc."},
	{"ADBE", Equity, "Technologie", "QQQ", "Adobe Inc."},
	{"CRM", Equity, "Technologie", "QQQ", "Salesforce Inc."},
	{"AMZN", Equity, "E-commerce", "QQQ", "Amazon.com Inc."},
	{"NFLX", Equity, "Divertissement", "QQQ", "Netflix Inc."},
	{"NVDA", Equity, "Semi-conducteurs", "QQQ", "NVIDIA Corp."},
	{"AVGO", Equity, "Semi-conducteurs", "QQQ", "Broadcom Inc."},
	{"TXN", Equity, "Semi-conducteurs", "QQQ", "Texas Instruments Inc."},
	{"CSCO", Equity, "Technologie réseaux", "QQQ", "Cisco Systems Inc."},

	{"JPM", Equity, "Banque", "SPY", "JPMorgan Chase & Co."},
	{"BAC", Equity, "Banque", "SPY", "Bank of America Corp."},
	{"WFC", Equity, "Banque", "SPY", "Wells Fargo & Co."},
	{"GS", Equity, "Banque", "SPY", "Goldman Sachs Group Inc."},
	{"MS", Equity, "Banque", "SPY", "Morgan Stanley"},
	{"V", Equity, "Paiements", "SPY", "Visa Inc."},
	{"MA", Equity, "Paiements", "SPY", "Mastercard Inc."},

	{"GE", Equity, "Industrie", "DIA", "General Electric Co."},
	{"CAT", Equity, "Industrie", "DIA", "Caterpillar Inc."},
	{"BA", Equity, "Aéronautique", "DIA", "Boeing Co."},

	{"XOM", Equity, "Énergie", "SPY", "Exxon Mobil Corp."},
	{"CVX", Equity, "Énergie", "SPY", "Chevron Corp."},

	{"JNJ", Equity, "Santé", "SPY", "Johnson & Johnson"},
	{"LLY", Equity, "Santé", "SPY", "Eli Lilly and Co."},
	{"PFE", Equity, "Santé", "SPY", "Pfizer Inc."},
	{"MRK", Equity, "Santé", "SPY", "Merck & Co. Inc."},
	{"ABBV", Equity, "Biotechnologie", "SPY", "AbbVie Inc."},
	{"TMO", Equity, "Biotechnologie", "SPY", "Thermo Fisher Scientific Inc."},
	{"UNH", Equity, "Assurance santé", "SPY", "UnitedHealth Group Inc."},
	{"DHR", Equity, "Matériel médical", "SPY", "Danaher Corp."},

	{"WMT", Equity, "Grande distribution", "SPY", "Walmart Inc."},
	{"COST", Equity, "Grande distribution", "SPY", "Costco Wholesale Corp."},
	{"HD", Equity, "Bricolage", "SPY", "Home Depot Inc."},
	{"DIS", Equity, "Divertissement", "SPY", "The Walt Disney Company"},
	{"NKE", Equity, "Consommation", "SPY", "Nike Inc."},
	{"KO", Equity, "Consommation", "SPY", "Coca-Cola Co."},
	{"PEP", Equity, "Consommation", "SPY", "PepsiCo Inc."},
	{"PG", Equity, "Consommation", "SPY", "Procter & Gamble Co."},

	{"VZ", Equity, "Télécom", "SPY", "Verizon Communications Inc."},
	{"TMUS", Equity, "Télécom", "SPY", "T-Mobile US Inc."},
	{"CMCSA", Equity, "Télécom", "SPY", "Comcast Corp."},

	{"TSLA", Equity, "Automobile", "SPY", "Tesla Inc."},
}
