package locale

import (
	"fmt"
	"strings"

	"github.com/mediguide/assistant/internal/mode"
	"github.com/mediguide/assistant/pkg/model"
)

// DefaultCode is used when a profile carries no usable language
const DefaultCode = "en"

// Language is a supported reply and interface language
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the supported languages in picker order
var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "Hindi (हिन्दी)"},
	{Code: "bn", Name: "Bengali (বাংলা)"},
	{Code: "ta", Name: "Tamil (தமிழ்)"},
	{Code: "te", Name: "Telugu (తెలుగు)"},
	{Code: "gu", Name: "Gujarati (ગુજરાતી)"},
	{Code: "es", Name: "Español"},
	{Code: "fr", Name: "Français"},
	{Code: "de", Name: "Deutsch"},
	{Code: "zh", Name: "Chinese (中文)"},
}

// Lookup resolves a language by code or display name, falling back to English
func Lookup(codeOrName string) Language {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, codeOrName) || l.Name == codeOrName {
			return l
		}
	}
	return Languages[0]
}

// Supported reports whether codeOrName names a supported language
func Supported(codeOrName string) bool {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, codeOrName) || l.Name == codeOrName {
			return true
		}
	}
	return false
}

var greetings = map[string]string{
	"en": "Hello %s. I am ready to help.",
	"bn": "হ্যালো %s। আমি সাহায্য করতে প্রস্তুত।",
	"hi": "नमस्ते %s। मैं मदद के लिए तैयार हूँ।",
	"es": "Hola %s. Estoy listo para ayudar.",
	"fr": "Bonjour %s. Je suis prêt à aider.",
}

// Greeting returns the opening line of a new session, addressed by first name
func Greeting(language, fullName string) string {
	name := firstName(fullName)
	if format, ok := greetings[Lookup(language).Code]; ok && Supported(language) {
		return fmt.Sprintf(format, name)
	}
	return fmt.Sprintf("Hello %s.", name)
}

func firstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ModeText is the localized copy shown for a mode
type ModeText struct {
	Title string
	Tips  [3]string
}

type modeTable [mode.Count]ModeText

// Every supported language carries a full table; there is no runtime fallback.
var modeTexts = map[string]modeTable{
	"en": {
		{"Symptom Checker", [3]string{
			"Be specific about where it hurts and how bad (1-10).",
			"Mention when the symptoms started.",
			"List any medications you are currently taking.",
		}},
		{"Skin & Visible Issues", [3]string{
			"Use bright, natural lighting for the photo.",
			"Ensure the affected area is in sharp focus.",
			"Include a coin or object for size reference if possible.",
		}},
		{"Meds & Lab Reports", [3]string{
			"For Medicines: Ensure name and dosage are visible.",
			"For Lab Reports: Capture the result numbers and reference ranges.",
			"Do not cover any warning labels or flags.",
		}},
		{"Mental Health Check-in", [3]string{
			"Find a quiet, private space to chat.",
			"Take a few deep breaths before starting.",
			"Be honest about your feelings; there is no judgment.",
		}},
	},
	"bn": {
		{"লক্ষণ পরীক্ষক", [3]string{
			"কোথায় ব্যথা এবং কত তীব্র (১-১০) তা নির্দিষ্ট করুন।",
			"লক্ষণগুলি কখন শুরু হয়েছিল তা উল্লেখ করুন।",
			"বর্তমানে কোনো ওষুধ সেবন করছেন কি না তা জানান।",
		}},
		{"ত্বক ও দৃশ্যমান সমস্যা", [3]string{
			"ছবির জন্য উজ্জ্বল, প্রাকৃতিক আলো ব্যবহার করুন।",
			"আক্রান্ত স্থানটি পরিষ্কার ফোকাসে আছে তা নিশ্চিত করুন।",
			"সম্ভব হলে আকারের রেফারেন্সের জন্য একটি মুদ্রা বা বস্তু অন্তর্ভুক্ত করুন।",
		}},
		{"ঔষধ ও ল্যাব রিপোর্ট", [3]string{
			"ঔষধের জন্য: নাম এবং ডোজ দৃশ্যমান আছে তা নিশ্চিত করুন।",
			"ল্যাব রিপোর্টের জন্য: ফলাফল এবং রেঞ্জ ক্যাপচার করুন।",
			"কোনো সতর্কতা লেবেল বা পতাকা কভার করবেন না।",
		}},
		{"মানসিক স্বাস্থ্য", [3]string{
			"চ্যাট করার জন্য একটি শান্ত, ব্যক্তিগত স্থান খুঁজুন।",
			"শুরু করার আগে কয়েকবার গভীর শ্বাস নিন।",
			"আপনার অনুভূতি সম্পর্কে সৎ হোন; কোনো বিচার নেই।",
		}},
	},
	"hi": {
		{"लक्षण जाँच", [3]string{
			"दर्द कहाँ है और कितना तेज है (1-10), यह स्पष्ट करें।",
			"बताएं कि लक्षण कब शुरू हुए।",
			"यदि कोई दवा ले रहे हैं, तो उसकी सूची दें।",
		}},
		{"त्वचा की समस्या", [3]string{
			"फोटो के लिए अच्छी प्राकृतिक रोशनी का उपयोग करें।",
			"सुनिश्चित करें कि प्रभावित क्षेत्र साफ दिखाई दे रहा है।",
			"आकार के संदर्भ के लिए कोई सिक्का या वस्तु साथ रखें।",
		}},
		{"दवा और लैब रिपोर्ट", [3]string{
			"दवाओं के लिए: सुनिश्चित करें कि नाम और खुराक दिखाई दे।",
			"लैब रिपोर्ट के लिए: परिणाम संख्या और संदर्भ सीमा कैप्चर करें।",
			"चेतावनी लेबल को न ढकें।",
		}},
		{"मानसिक स्वास्थ्य", [3]string{
			"बातचीत के लिए एक शांत जगह खोजें।",
			"शुरू करने से पहले गहरी सांस लें।",
			"अपनी भावनाओं के बारे में ईमानदार रहें; कोई निर्णय नहीं लिया जाएगा।",
		}},
	},
	"ta": {
		{"அறிகுறி சோதனையாளர்", [3]string{
			"எங்கு வலிக்கிறது மற்றும் எவ்வளவு மோசமாக உள்ளது (1-10) என்பதைக் குறிப்பிடவும்.",
			"அறிகுறிகள் எப்போது தொடங்கின என்பதைக் குறிப்பிடவும்.",
			"தற்போது நீங்கள் எடுத்துக்கொள்ளும் மருந்துகளைப் பட்டியலிடவும்.",
		}},
		{"தோல் பராமரிப்பு", [3]string{
			"புகைப்படத்திற்கு பிரகாசமான, இயற்கையான ஒளியைப் பயன்படுத்தவும்.",
			"பாதிக்கப்பட்ட பகுதி தெளிவாக உள்ளதா என்பதை உறுதிப்படுத்தவும்.",
			"முடிந்தால் அளவைக் குறிக்க ஒரு நாணயம் அல்லது பொருளைச் சேர்க்கவும்.",
		}},
		{"மருந்து & ஆய்வக அறிக்கை", [3]string{
			"மருந்துகளுக்கு: பெயர் மற்றும் அளவு தெரிவதை உறுதிப்படுத்தவும்.",
			"ஆய்வக அறிக்கைகளுக்கு: முடிவுகள் மற்றும் குறிப்பு வரம்புகளைப் படம் எடுக்கவும்.",
			"எந்த எச்சரிக்கை லேபிள்களையும் மறைக்க வேண்டாம்.",
		}},
		{"மனநலம்", [3]string{
			"பேசுவதற்கு அமைதியான, தனிப்பட்ட இடத்தைக் கண்டறியவும்.",
			"தொடங்குவதற்கு முன் சில முறை ஆழ்ந்த மூச்சு விடவும்.",
			"உங்கள் உணர்வுகளைப் பற்றி நேர்மையாக இருங்கள்.",
		}},
	},
	"te": {
		{"లక్షణాల తనిఖీ", [3]string{
			"ఎక్కడ నొప్పిగా ఉందో మరియు ఎంత తీవ్రంగా (1-10) ఉందో స్పష్టంగా చెప్పండి.",
			"లక్షణాలు ఎప్పుడు మొదలయ్యాయో చెప్పండి.",
			"మీరు ప్రస్తుతం వాడుతున్న మందులను తెలియజేయండి.",
		}},
		{"చర్మ సమస్యలు", [3]string{
			"ఫోటో కోసం మంచి సహజ కాంతిని ఉపయోగించండి.",
			"ప్రభావిత ప్రాంతం స్పష్టంగా కనిపించేలా చూసుకోండి.",
			"పరిమాణం అర్థం చేసుకోవడానికి ఒక నాణెం లేదా వస్తువును పక్కన పెట్టండి.",
		}},
		{"మందులు & నివేదికలు", [3]string{
			"మందుల కోసం: పేరు మరియు మోతాదు కనిపించేలా చూసుకోండి.",
			"ల్యాబ్ రిపోర్ట్‌ల కోసం: ఫలితాలు మరియు రేంజ్‌లను క్యాప్చర్ చేయండి.",
			"హెచ్చరిక లేబుల్‌లను కవర్ చేయవద్దు.",
		}},
		{"మానసిక ఆరోగ్యం", [3]string{
			"మాట్లాడటానికి ప్రశాంతమైన, వ్యక్తిగత స్థలాన్ని ఎంచుకోండి.",
			"ప్రారంభించడానికి ముందు లోతైన శ్వాస తీసుకోండి.",
			"మీ భావాల గురించి నిజాయితీగా ఉండండి.",
		}},
	},
	"gu": {
		{"લક્ષણ તપાસનાર", [3]string{
			"ક્યાં દુખાવો છે અને કેટલો (1-10) તે સ્પષ્ટ કરો.",
			"લક્ષણો ક્યારે શરૂ થયા તે જણાવો.",
			"હાલમાં લેવાતી દવાઓ જણાવો.",
		}},
		{"ત્વચા સંભાળ", [3]string{
			"ફોટો માટે સારા કુદરતી પ્રકાશનો ઉપયોગ કરો.",
			"ખાતરી કરો કે અસરગ્રસ્ત વિસ્તાર સ્પષ્ટ છે.",
			"માપ જાણવા માટે સિક્કો અથવા વસ્તુ સાથે રાખો.",
		}},
		{"દવાઓ અને રિપોર્ટ", [3]string{
			"દવાઓ માટે: નામ અને ડોઝ દેખાય છે તેની ખાતરી કરો.",
			"લેબ રિપોર્ટ માટે: પરિણામ અને રેન્જનો ફોટો લો.",
			"ચેતવણી લેબલને ઢાંકશો નહીં.",
		}},
		{"માનસિક સ્વાસ્થ્ય", [3]string{
			"વાત કરવા માટે શાંત જગ્યા શોધો.",
			"શરૂ કરતા પહેલા ઊંડા શ્વાસ લો.",
			"તમારી લાગણીઓ વિશે પ્રામાણિક રહો.",
		}},
	},
	"es": {
		{"Verificador de Síntomas", [3]string{
			"Sé específico sobre dónde te duele y cuánto (1-10).",
			"Menciona cuándo comenzaron los síntomas.",
			"Enumera los medicamentos que estás tomando actualmente.",
		}},
		{"Piel y Problemas Visibles", [3]string{
			"Usa iluminación natural brillante para la foto.",
			"Asegúrate de que el área afectada esté enfocada.",
			"Incluye una moneda u objeto como referencia de tamaño si es posible.",
		}},
		{"Medicinas y Reportes", [3]string{
			"Para medicinas: Asegúrate de que el nombre y la dosis sean visibles.",
			"Para reportes: Captura los números de resultados y rangos de referencia.",
			"No cubras ninguna etiqueta de advertencia.",
		}},
		{"Salud Mental", [3]string{
			"Encuentra un espacio tranquilo y privado para charlar.",
			"Respira profundamente antes de comenzar.",
			"Sé honesto sobre tus sentimientos; no hay juicio.",
		}},
	},
	"fr": {
		{"Vérificateur de Symptômes", [3]string{
			"Soyez précis sur l'endroit où vous avez mal et l'intensité (1-10).",
			"Mentionnez quand les symptômes ont commencé.",
			"Listez les médicaments que vous prenez actuellement.",
		}},
		{"Problèmes de Peau", [3]string{
			"Utilisez un éclairage naturel et lumineux.",
			"Assurez-vous que la zone affectée est nette.",
			"Incluez une pièce de monnaie pour référence de taille si possible.",
		}},
		{"Médicaments et Labo", [3]string{
			"Pour les médicaments : Assurez-vous que le nom et le dosage sont visibles.",
			"Pour les rapports : Capturez les résultats et les plages de référence.",
			"Ne couvrez pas les étiquettes d'avertissement.",
		}},
		{"Santé Mentale", [3]string{
			"Trouvez un endroit calme et privé.",
			"Prenez quelques grandes respirations avant de commencer.",
			"Soyez honnête sur vos sentiments ; il n'y a pas de jugement.",
		}},
	},
	"de": {
		{"Symptom-Checker", [3]string{
			"Seien Sie genau, wo es wehtut und wie stark (1-10).",
			"Erwähnen Sie, wann die Symptome begannen.",
			"Listen Sie alle Medikamente auf, die Sie einnehmen.",
		}},
		{"Hautprobleme", [3]string{
			"Verwenden Sie helles, natürliches Licht für das Foto.",
			"Stellen Sie sicher, dass der betroffene Bereich scharf ist.",
			"Legen Sie wenn möglich eine Münze als Größenvergleich dazu.",
		}},
		{"Medikamente & Labor", [3]string{
			"Für Medikamente: Stellen Sie sicher, dass Name und Dosierung sichtbar sind.",
			"Für Laborberichte: Erfassen Sie die Ergebniswerte und Referenzbereiche.",
			"Verdecken Sie keine Warnhinweise.",
		}},
		{"Psychische Gesundheit", [3]string{
			"Suchen Sie sich einen ruhigen, privaten Ort.",
			"Atmen Sie vor Beginn tief durch.",
			"Seien Sie ehrlich mit Ihren Gefühlen; es gibt kein Urteil.",
		}},
	},
	"zh": {
		{"症状检查", [3]string{
			"具体说明哪里痛以及疼痛程度 (1-10)。",
			"提及症状何时开始。",
			"列出您目前正在服用的任何药物。",
		}},
		{"皮肤与外观问题", [3]string{
			"使用明亮的自然光拍摄照片。",
			"确保受影响区域对焦清晰。",
			"如果可能，包含一枚硬币或物体作为大小参考。",
		}},
		{"药物与化验报告", [3]string{
			"对于药物：确保名称和剂量清晰可见。",
			"对于化验报告：拍摄结果数值和参考范围。",
			"不要遮挡任何警告标签。",
		}},
		{"心理健康", [3]string{
			"找一个安静、私密的地方聊天。",
			"开始前深呼吸几次。",
			"诚实表达您的感受；这里没有评判。",
		}},
	},
}

// Mode returns the localized title and tips for m
func Mode(language string, m model.Mode) (ModeText, error) {
	i, ok := mode.Index(m)
	if !ok {
		return ModeText{}, fmt.Errorf("unknown mode: %q", m)
	}
	table, ok := modeTexts[Lookup(language).Code]
	if !ok {
		return ModeText{}, fmt.Errorf("no mode copy for language %q", language)
	}
	return table[i], nil
}

// ModeTitle returns the localized title for m, or the raw mode name if m is unknown
func ModeTitle(language string, m model.Mode) string {
	text, err := Mode(language, m)
	if err != nil {
		return string(m)
	}
	return text.Title
}
