package usecase

import (
	"fmt"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

type messageKey int

const (
	msgNoData messageKey = iota
	msgOutOfRange
	msgDegradedHeader
	msgUnclear

	// Labels for the figure templates.
	msgTotalFunding
	msgDeals
	msgDisclosed
	msgAverageDeal
	msgLargest
	msgSmallest
	msgTopCompanies
	msgTopInvestors
	msgNoDisclosed
	msgComparison
	msgGrowth
	msgHighest
	msgRankedHeader
	msgDimCity
	msgDimSector
	msgDimYear
)

// Fixed replies are stored per language so they never depend on the
// translator being reachable.
var messages = map[string]map[messageKey]string{
	"en": {
		msgNoData:         "No matching funding records were found in the dataset for this question.",
		msgOutOfRange:     "The dataset covers funding from %d to %d. There are no records for the requested years.",
		msgDegradedHeader: "The answer service is temporarily unavailable. Matching records from the dataset:",
		msgUnclear:        "I could not understand the question. Please ask about startup funding, for example: Total funding in Karnataka in 2019.",

		msgTotalFunding: "Total funding",
		msgDeals:        "Deals",
		msgDisclosed:    "%d with disclosed amounts",
		msgAverageDeal:  "Average deal",
		msgLargest:      "Largest",
		msgSmallest:     "Smallest",
		msgTopCompanies: "Top companies",
		msgTopInvestors: "Most active investors",
		msgNoDisclosed:  "No deal in this selection has a disclosed amount.",
		msgComparison:   "Funding comparison",
		msgGrowth:       "Growth",
		msgHighest:      "Highest total funding",
		msgRankedHeader: "Top %d startups by funding",
		msgDimCity:      "city",
		msgDimSector:    "sector",
		msgDimYear:      "year",
	},
	"hi": {
		msgNoData:         "इस प्रश्न के लिए डेटासेट में कोई मेल खाता फंडिंग रिकॉर्ड नहीं मिला।",
		msgOutOfRange:     "डेटासेट में %d से %d तक की फंडिंग शामिल है। अनुरोधित वर्षों के लिए कोई रिकॉर्ड नहीं है।",
		msgDegradedHeader: "उत्तर सेवा अस्थायी रूप से उपलब्ध नहीं है। डेटासेट से मेल खाते रिकॉर्ड:",
		msgUnclear:        "प्रश्न समझ में नहीं आया। कृपया स्टार्टअप फंडिंग के बारे में पूछें, जैसे: 2019 में कर्नाटक में कुल फंडिंग।",

		msgTotalFunding: "कुल फंडिंग",
		msgDeals:        "सौदे",
		msgDisclosed:    "%d की राशि घोषित",
		msgAverageDeal:  "औसत सौदा",
		msgLargest:      "सबसे बड़ा",
		msgSmallest:     "सबसे छोटा",
		msgTopCompanies: "शीर्ष कंपनियां",
		msgTopInvestors: "सबसे सक्रिय निवेशक",
		msgNoDisclosed:  "इस चयन में किसी सौदे की राशि घोषित नहीं है।",
		msgComparison:   "फंडिंग तुलना",
		msgGrowth:       "वृद्धि",
		msgHighest:      "सबसे अधिक कुल फंडिंग",
		msgRankedHeader: "फंडिंग के अनुसार शीर्ष %d स्टार्टअप",
		msgDimCity:      "शहर",
		msgDimSector:    "क्षेत्र",
		msgDimYear:      "वर्ष",
	},
	"mr": {
		msgNoData:         "या प्रश्नासाठी डेटासेटमध्ये कोणतीही जुळणारी निधी नोंद आढळली नाही.",
		msgOutOfRange:     "डेटासेटमध्ये %d ते %d या काळातील निधीची माहिती आहे. विचारलेल्या वर्षांसाठी नोंदी नाहीत.",
		msgDegradedHeader: "उत्तर सेवा तात्पुरती उपलब्ध नाही. डेटासेटमधील जुळणाऱ्या नोंदी:",
		msgUnclear:        "प्रश्न समजला नाही. कृपया स्टार्टअप निधीबद्दल विचारा, उदा.: 2019 मध्ये कर्नाटकातील एकूण निधी.",

		msgTotalFunding: "एकूण निधी",
		msgDeals:        "व्यवहार",
		msgDisclosed:    "%d ची रक्कम जाहीर",
		msgAverageDeal:  "सरासरी व्यवहार",
		msgLargest:      "सर्वात मोठा",
		msgSmallest:     "सर्वात लहान",
		msgTopCompanies: "शीर्ष कंपन्या",
		msgTopInvestors: "सर्वाधिक सक्रिय गुंतवणूकदार",
		msgNoDisclosed:  "या निवडीतील कोणत्याही व्यवहाराची रक्कम जाहीर नाही.",
		msgComparison:   "निधी तुलना",
		msgGrowth:       "वाढ",
		msgHighest:      "सर्वाधिक एकूण निधी",
		msgRankedHeader: "निधीनुसार शीर्ष %d स्टार्टअप",
		msgDimCity:      "शहर",
		msgDimSector:    "क्षेत्र",
		msgDimYear:      "वर्ष",
	},
	"te": {
		msgNoData:         "ఈ ప్రశ్నకు సరిపోయే నిధుల రికార్డులు డేటాసెట్‌లో కనుగొనబడలేదు.",
		msgOutOfRange:     "డేటాసెట్‌లో %d నుండి %d వరకు నిధుల వివరాలు ఉన్నాయి. అడిగిన సంవత్సరాలకు రికార్డులు లేవు.",
		msgDegradedHeader: "సమాధాన సేవ తాత్కాలికంగా అందుబాటులో లేదు. డేటాసెట్‌లో సరిపోయే రికార్డులు:",
		msgUnclear:        "ప్రశ్న అర్థం కాలేదు. దయచేసి స్టార్టప్ నిధుల గురించి అడగండి.",

		msgTotalFunding: "మొత్తం ఫండింగ్",
		msgDeals:        "డీల్స్",
		msgDisclosed:    "%d మొత్తాలు వెల్లడించబడ్డాయి",
		msgAverageDeal:  "సగటు డీల్",
		msgLargest:      "అతిపెద్దది",
		msgSmallest:     "అతిచిన్నది",
		msgTopCompanies: "టాప్ కంపెనీలు",
		msgTopInvestors: "అత్యంత చురుకైన పెట్టుబడిదారులు",
		msgNoDisclosed:  "ఈ ఎంపికలో ఏ డీల్ మొత్తమూ వెల్లడించబడలేదు.",
		msgComparison:   "ఫండింగ్ పోలిక",
		msgGrowth:       "పెరుగుదల",
		msgHighest:      "అత్యధిక మొత్తం ఫండింగ్",
		msgRankedHeader: "ఫండింగ్ ప్రకారం టాప్ %d స్టార్టప్‌లు",
		msgDimCity:      "నగరం",
		msgDimSector:    "రంగం",
		msgDimYear:      "సంవత్సరం",
	},
	"ta": {
		msgNoData:         "இந்தக் கேள்விக்குப் பொருந்தும் நிதி பதிவுகள் தரவுத்தொகுப்பில் இல்லை.",
		msgOutOfRange:     "தரவுத்தொகுப்பு %d முதல் %d வரையிலான நிதியை உள்ளடக்கியது. கேட்ட ஆண்டுகளுக்கு பதிவுகள் இல்லை.",
		msgDegradedHeader: "பதில் சேவை தற்காலிகமாக கிடைக்கவில்லை. தரவுத்தொகுப்பில் பொருந்தும் பதிவுகள்:",
		msgUnclear:        "கேள்வி புரியவில்லை. ஸ்டார்ட்அப் நிதி பற்றி கேளுங்கள்.",

		msgTotalFunding: "மொத்த நிதி",
		msgDeals:        "ஒப்பந்தங்கள்",
		msgDisclosed:    "%d தொகை வெளியிடப்பட்டது",
		msgAverageDeal:  "சராசரி ஒப்பந்தம்",
		msgLargest:      "மிகப்பெரியது",
		msgSmallest:     "மிகச்சிறியது",
		msgTopCompanies: "முதன்மை நிறுவனங்கள்",
		msgTopInvestors: "மிகச் செயலில் உள்ள முதலீட்டாளர்கள்",
		msgNoDisclosed:  "இந்தத் தேர்வில் எந்த ஒப்பந்தத்தின் தொகையும் வெளியிடப்படவில்லை.",
		msgComparison:   "நிதி ஒப்பீடு",
		msgGrowth:       "வளர்ச்சி",
		msgHighest:      "அதிகபட்ச மொத்த நிதி",
		msgRankedHeader: "நிதி அடிப்படையில் முதல் %d ஸ்டார்ட்அப்கள்",
		msgDimCity:      "நகரம்",
		msgDimSector:    "துறை",
		msgDimYear:      "ஆண்டு",
	},
	"kn": {
		msgNoData:         "ಈ ಪ್ರಶ್ನೆಗೆ ಹೊಂದುವ ಹೂಡಿಕೆ ದಾಖಲೆಗಳು ಡೇಟಾಸೆಟ್‌ನಲ್ಲಿ ಕಂಡುಬಂದಿಲ್ಲ.",
		msgOutOfRange:     "ಡೇಟಾಸೆಟ್ %d ರಿಂದ %d ರವರೆಗಿನ ಹೂಡಿಕೆಯನ್ನು ಒಳಗೊಂಡಿದೆ. ಕೇಳಿದ ವರ್ಷಗಳಿಗೆ ದಾಖಲೆಗಳಿಲ್ಲ.",
		msgDegradedHeader: "ಉತ್ತರ ಸೇವೆ ತಾತ್ಕಾಲಿಕವಾಗಿ ಲಭ್ಯವಿಲ್ಲ. ಡೇಟಾಸೆಟ್‌ನ ಹೊಂದುವ ದಾಖಲೆಗಳು:",
		msgUnclear:        "ಪ್ರಶ್ನೆ ಅರ್ಥವಾಗಲಿಲ್ಲ. ದಯವಿಟ್ಟು ಸ್ಟಾರ್ಟ್‌ಅಪ್ ಹೂಡಿಕೆಯ ಬಗ್ಗೆ ಕೇಳಿ.",

		msgTotalFunding: "ಒಟ್ಟು ಫಂಡಿಂಗ್",
		msgDeals:        "ಒಪ್ಪಂದಗಳು",
		msgDisclosed:    "%d ಮೊತ್ತ ಬಹಿರಂಗ",
		msgAverageDeal:  "ಸರಾಸರಿ ಒಪ್ಪಂದ",
		msgLargest:      "ಅತಿ ದೊಡ್ಡದು",
		msgSmallest:     "ಅತಿ ಚಿಕ್ಕದು",
		msgTopCompanies: "ಪ್ರಮುಖ ಕಂಪನಿಗಳು",
		msgTopInvestors: "ಅತ್ಯಂತ ಸಕ್ರಿಯ ಹೂಡಿಕೆದಾರರು",
		msgNoDisclosed:  "ಈ ಆಯ್ಕೆಯಲ್ಲಿ ಯಾವುದೇ ಒಪ್ಪಂದದ ಮೊತ್ತ ಬಹಿರಂಗವಾಗಿಲ್ಲ.",
		msgComparison:   "ಫಂಡಿಂಗ್ ಹೋಲಿಕೆ",
		msgGrowth:       "ಬೆಳವಣಿಗೆ",
		msgHighest:      "ಅತಿ ಹೆಚ್ಚು ಒಟ್ಟು ಫಂಡಿಂಗ್",
		msgRankedHeader: "ಫಂಡಿಂಗ್ ಪ್ರಕಾರ ಟಾಪ್ %d ಸ್ಟಾರ್ಟ್‌ಅಪ್‌ಗಳು",
		msgDimCity:      "ನಗರ",
		msgDimSector:    "ವಲಯ",
		msgDimYear:      "ವರ್ಷ",
	},
	"gu": {
		msgNoData:         "આ પ્રશ્ન માટે ડેટાસેટમાં કોઈ મેળ ખાતા ફંડિંગ રેકોર્ડ મળ્યા નથી.",
		msgOutOfRange:     "ડેટાસેટમાં %d થી %d સુધીનું ફંડિંગ છે. વિનંતી કરેલા વર્ષો માટે કોઈ રેકોર્ડ નથી.",
		msgDegradedHeader: "જવાબ સેવા હાલમાં ઉપલબ્ધ નથી. ડેટાસેટમાંથી મેળ ખાતા રેકોર્ડ:",
		msgUnclear:        "પ્રશ્ન સમજાયો નહીં. કૃપા કરીને સ્ટાર્ટઅપ ફંડિંગ વિશે પૂછો.",

		msgTotalFunding: "કુલ ફંડિંગ",
		msgDeals:        "સોદા",
		msgDisclosed:    "%d ની રકમ જાહેર",
		msgAverageDeal:  "સરેરાશ સોદો",
		msgLargest:      "સૌથી મોટો",
		msgSmallest:     "સૌથી નાનો",
		msgTopCompanies: "ટોચની કંપનીઓ",
		msgTopInvestors: "સૌથી સક્રિય રોકાણકારો",
		msgNoDisclosed:  "આ પસંદગીમાં કોઈ સોદાની રકમ જાહેર નથી.",
		msgComparison:   "ફંડિંગ સરખામણી",
		msgGrowth:       "વૃદ્ધિ",
		msgHighest:      "સૌથી વધુ કુલ ફંડિંગ",
		msgRankedHeader: "ફંડિંગ મુજબ ટોચના %d સ્ટાર્ટઅપ",
		msgDimCity:      "શહેર",
		msgDimSector:    "સેક્ટર",
		msgDimYear:      "વર્ષ",
	},
	"bn": {
		msgNoData:         "এই প্রশ্নের জন্য ডেটাসেটে কোনো মিলে যাওয়া ফান্ডিং রেকর্ড পাওয়া যায়নি।",
		msgOutOfRange:     "ডেটাসেটে %d থেকে %d পর্যন্ত ফান্ডিংয়ের তথ্য আছে। অনুরোধ করা বছরগুলির জন্য কোনো রেকর্ড নেই।",
		msgDegradedHeader: "উত্তর পরিষেবা সাময়িকভাবে অনুপলব্ধ। ডেটাসেট থেকে মিলে যাওয়া রেকর্ড:",
		msgUnclear:        "প্রশ্নটি বোঝা যায়নি। অনুগ্রহ করে স্টার্টআপ ফান্ডিং সম্পর্কে জিজ্ঞাসা করুন।",

		msgTotalFunding: "মোট ফান্ডিং",
		msgDeals:        "চুক্তি",
		msgDisclosed:    "%dটির পরিমাণ প্রকাশিত",
		msgAverageDeal:  "গড় চুক্তি",
		msgLargest:      "সবচেয়ে বড়",
		msgSmallest:     "সবচেয়ে ছোট",
		msgTopCompanies: "শীর্ষ কোম্পানি",
		msgTopInvestors: "সবচেয়ে সক্রিয় বিনিয়োগকারী",
		msgNoDisclosed:  "এই নির্বাচনে কোনো চুক্তির পরিমাণ প্রকাশিত নয়।",
		msgComparison:   "ফান্ডিং তুলনা",
		msgGrowth:       "বৃদ্ধি",
		msgHighest:      "সর্বোচ্চ মোট ফান্ডিং",
		msgRankedHeader: "ফান্ডিং অনুযায়ী শীর্ষ %dটি স্টার্টআপ",
		msgDimCity:      "শহর",
		msgDimSector:    "সেক্টর",
		msgDimYear:      "বছর",
	},
	"ml": {
		msgNoData:         "ഈ ചോദ്യത്തിന് അനുയോജ്യമായ ഫണ്ടിംഗ് രേഖകൾ ഡാറ്റാസെറ്റിൽ കണ്ടെത്തിയില്ല.",
		msgOutOfRange:     "ഡാറ്റാസെറ്റിൽ %d മുതൽ %d വരെയുള്ള ഫണ്ടിംഗ് വിവരങ്ങളാണ് ഉള്ളത്. ആവശ്യപ്പെട്ട വർഷങ്ങൾക്ക് രേഖകളില്ല.",
		msgDegradedHeader: "ഉത്തര സേവനം താൽക്കാലികമായി ലഭ്യമല്ല. ഡാറ്റാസെറ്റിലെ അനുയോജ്യമായ രേഖകൾ:",
		msgUnclear:        "ചോദ്യം മനസ്സിലായില്ല. ദയവായി സ്റ്റാർട്ടപ്പ് ഫണ്ടിംഗിനെക്കുറിച്ച് ചോദിക്കുക.",

		msgTotalFunding: "ആകെ ഫണ്ടിംഗ്",
		msgDeals:        "ഇടപാടുകൾ",
		msgDisclosed:    "%d എണ്ണത്തിന്റെ തുക വെളിപ്പെടുത്തി",
		msgAverageDeal:  "ശരാശരി ഇടപാട്",
		msgLargest:      "ഏറ്റവും വലുത്",
		msgSmallest:     "ഏറ്റവും ചെറുത്",
		msgTopCompanies: "മുൻനിര കമ്പനികൾ",
		msgTopInvestors: "ഏറ്റവും സജീവ നിക്ഷേപകർ",
		msgNoDisclosed:  "ഈ തിരഞ്ഞെടുപ്പിലെ ഒരു ഇടപാടിന്റെയും തുക വെളിപ്പെടുത്തിയിട്ടില്ല.",
		msgComparison:   "ഫണ്ടിംഗ് താരതമ്യം",
		msgGrowth:       "വളർച്ച",
		msgHighest:      "ഏറ്റവും ഉയർന്ന ആകെ ഫണ്ടിംഗ്",
		msgRankedHeader: "ഫണ്ടിംഗ് പ്രകാരം മുൻനിര %d സ്റ്റാർട്ടപ്പുകൾ",
		msgDimCity:      "നഗരം",
		msgDimSector:    "മേഖല",
		msgDimYear:      "വർഷം",
	},
	"pa": {
		msgNoData:         "ਇਸ ਸਵਾਲ ਲਈ ਡੇਟਾਸੈੱਟ ਵਿੱਚ ਕੋਈ ਮੇਲ ਖਾਂਦਾ ਫੰਡਿੰਗ ਰਿਕਾਰਡ ਨਹੀਂ ਮਿਲਿਆ।",
		msgOutOfRange:     "ਡੇਟਾਸੈੱਟ ਵਿੱਚ %d ਤੋਂ %d ਤੱਕ ਦੀ ਫੰਡਿੰਗ ਸ਼ਾਮਲ ਹੈ। ਮੰਗੇ ਗਏ ਸਾਲਾਂ ਲਈ ਕੋਈ ਰਿਕਾਰਡ ਨਹੀਂ ਹੈ।",
		msgDegradedHeader: "ਜਵਾਬ ਸੇਵਾ ਅਸਥਾਈ ਤੌਰ 'ਤੇ ਉਪਲਬਧ ਨਹੀਂ ਹੈ। ਡੇਟਾਸੈੱਟ ਤੋਂ ਮੇਲ ਖਾਂਦੇ ਰਿਕਾਰਡ:",
		msgUnclear:        "ਸਵਾਲ ਸਮਝ ਨਹੀਂ ਆਇਆ। ਕਿਰਪਾ ਕਰਕੇ ਸਟਾਰਟਅੱਪ ਫੰਡਿੰਗ ਬਾਰੇ ਪੁੱਛੋ।",

		msgTotalFunding: "ਕੁੱਲ ਫੰਡਿੰਗ",
		msgDeals:        "ਸੌਦੇ",
		msgDisclosed:    "%d ਦੀ ਰਕਮ ਜਾਰੀ",
		msgAverageDeal:  "ਔਸਤ ਸੌਦਾ",
		msgLargest:      "ਸਭ ਤੋਂ ਵੱਡਾ",
		msgSmallest:     "ਸਭ ਤੋਂ ਛੋਟਾ",
		msgTopCompanies: "ਚੋਟੀ ਦੀਆਂ ਕੰਪਨੀਆਂ",
		msgTopInvestors: "ਸਭ ਤੋਂ ਸਰਗਰਮ ਨਿਵੇਸ਼ਕ",
		msgNoDisclosed:  "ਇਸ ਚੋਣ ਵਿੱਚ ਕਿਸੇ ਸੌਦੇ ਦੀ ਰਕਮ ਜਾਰੀ ਨਹੀਂ ਕੀਤੀ ਗਈ।",
		msgComparison:   "ਫੰਡਿੰਗ ਤੁਲਨਾ",
		msgGrowth:       "ਵਾਧਾ",
		msgHighest:      "ਸਭ ਤੋਂ ਵੱਧ ਕੁੱਲ ਫੰਡਿੰਗ",
		msgRankedHeader: "ਫੰਡਿੰਗ ਅਨੁਸਾਰ ਚੋਟੀ ਦੇ %d ਸਟਾਰਟਅੱਪ",
		msgDimCity:      "ਸ਼ਹਿਰ",
		msgDimSector:    "ਸੈਕਟਰ",
		msgDimYear:      "ਸਾਲ",
	},
}

func message(lang string, key messageKey, args ...any) string {
	set, ok := messages[lang]
	if !ok {
		set = messages[domain.PivotLanguage]
	}
	text, ok := set[key]
	if !ok {
		text = messages[domain.PivotLanguage][key]
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}
